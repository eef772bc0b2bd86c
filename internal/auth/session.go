// Package auth resolves bearer session tokens to the Actor on whose behalf
// a request runs. Issuing sessions (sign-up, passwords, OAuth) belongs to a
// separate identity service; this package only validates them, plus a
// seeding helper for local development.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recipebox/internal/types"
)

// SessionPrefix marks session bearer tokens.
const SessionPrefix = "sess_"

// SessionRepo is the session storage used by Authenticator.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*types.Session, error)
	Put(ctx context.Context, s *types.Session) error
}

// Authenticator implements core.Authenticator over a SessionRepo.
type Authenticator struct {
	repo   SessionRepo
	clock  types.Clock
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(repo SessionRepo, clock types.Clock, logger *slog.Logger) *Authenticator {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{repo: repo, clock: clock, logger: logger}
}

// ResolveToken returns the Actor for a session token.
//
// Unknown or malformed tokens yield auth_token_invalid and expired sessions
// auth_session_expired. Storage failures are returned unchanged so the HTTP
// layer reports them as 503 rather than as a credential problem.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	if !strings.HasPrefix(token, SessionPrefix) || len(token) == len(SessionPrefix) {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "unrecognized token format", nil)
	}

	session, err := a.repo.GetByID(ctx, token)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "session not found", nil)
		}
		return nil, err
	}

	if !a.clock.Now().Before(session.ExpiresAt) {
		a.logger.Info("session expired",
			slog.String("user_id", session.UserID),
			slog.Time("expired_at", session.ExpiresAt),
		)
		return nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session has expired", nil)
	}

	return &types.Actor{
		ID:        session.UserID,
		Type:      types.ActorTypeUser,
		SessionID: session.ID,
	}, nil
}

// NewSessionID returns "sess_" followed by 32 random bytes in hex.
func NewSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}
	return SessionPrefix + hex.EncodeToString(b), nil
}

// SeedSessions stores development sessions from "token:userID" entries.
// An entry without a token part gets a generated one. It returns the
// seeded token for each user.
func SeedSessions(ctx context.Context, repo SessionRepo, entries []string, ttl time.Duration, clock types.Clock) (map[string]string, error) {
	if clock == nil {
		clock = types.RealClock{}
	}
	now := clock.Now()
	seeded := make(map[string]string, len(entries))

	for _, entry := range entries {
		token, userID, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			token, userID = "", token
		}
		if userID == "" {
			return nil, fmt.Errorf("dev session %q has no user id", entry)
		}
		if token == "" {
			var err error
			if token, err = NewSessionID(); err != nil {
				return nil, err
			}
		}
		if !strings.HasPrefix(token, SessionPrefix) {
			return nil, fmt.Errorf("dev session token for %s must start with %q", userID, SessionPrefix)
		}

		err := repo.Put(ctx, &types.Session{
			ID:        token,
			UserID:    userID,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
		seeded[userID] = token
	}
	return seeded, nil
}
