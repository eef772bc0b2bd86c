package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/memstore"
	"recipebox/internal/types"
)

var authNow = time.Date(2024, 4, 18, 12, 0, 0, 0, time.UTC)

type downSessions struct{}

func (downSessions) GetByID(context.Context, string) (*types.Session, error) {
	return nil, types.StorageError("failed to load session", assert.AnError)
}

func (downSessions) Put(context.Context, *types.Session) error { return nil }

func newAuthenticator(t *testing.T) (*Authenticator, *memstore.SessionRepo) {
	t.Helper()
	repo := memstore.NewSessionRepo()
	require.NoError(t, repo.Put(context.Background(), &types.Session{
		ID: "sess_live", UserID: "alice", ExpiresAt: authNow.Add(time.Hour), CreatedAt: authNow,
	}))
	require.NoError(t, repo.Put(context.Background(), &types.Session{
		ID: "sess_old", UserID: "alice", ExpiresAt: authNow, CreatedAt: authNow.Add(-time.Hour),
	}))
	return NewAuthenticator(repo, types.FixedClock{T: authNow}, nil), repo
}

func TestResolveToken_LiveSession(t *testing.T) {
	a, _ := newAuthenticator(t)

	actor, err := a.ResolveToken(context.Background(), "sess_live")
	require.NoError(t, err)
	assert.Equal(t, "alice", actor.ID)
	assert.Equal(t, types.ActorTypeUser, actor.Type)
	assert.Equal(t, "sess_live", actor.SessionID)
}

func TestResolveToken_Failures(t *testing.T) {
	a, _ := newAuthenticator(t)

	cases := map[string]types.ErrorCode{
		"sk_live_123":  types.ErrCodeAuthTokenInvalid,
		"sess_":        types.ErrCodeAuthTokenInvalid,
		"sess_unknown": types.ErrCodeAuthTokenInvalid,
		"sess_old":     types.ErrCodeAuthSessionExpired,
	}
	for token, want := range cases {
		t.Run(token, func(t *testing.T) {
			_, err := a.ResolveToken(context.Background(), token)
			assert.Equal(t, want, types.ErrorCodeOf(err))
		})
	}
}

func TestResolveToken_StorageFailurePassesThrough(t *testing.T) {
	a := NewAuthenticator(downSessions{}, types.FixedClock{T: authNow}, nil)

	_, err := a.ResolveToken(context.Background(), "sess_live")
	assert.True(t, types.IsStorageUnavailable(err))
}

func TestSeedSessions(t *testing.T) {
	repo := memstore.NewSessionRepo()
	clock := types.FixedClock{T: authNow}

	seeded, err := SeedSessions(context.Background(), repo, []string{"sess_dev_alice:alice", "bob"}, time.Hour, clock)
	require.NoError(t, err)
	assert.Equal(t, "sess_dev_alice", seeded["alice"])
	assert.True(t, len(seeded["bob"]) > len(SessionPrefix))

	a := NewAuthenticator(repo, clock, nil)
	actor, err := a.ResolveToken(context.Background(), seeded["bob"])
	require.NoError(t, err)
	assert.Equal(t, "bob", actor.ID)
}

func TestSeedSessions_RejectsBadEntries(t *testing.T) {
	repo := memstore.NewSessionRepo()

	_, err := SeedSessions(context.Background(), repo, []string{"token_alice:alice"}, time.Hour, nil)
	assert.Error(t, err)

	_, err = SeedSessions(context.Background(), repo, []string{"sess_x:"}, time.Hour, nil)
	assert.Error(t, err)
}
