package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"recipebox/internal/types"
)

// SessionRepo reads and writes login sessions. Issuing sessions happens
// elsewhere; this service only resolves them.
type SessionRepo struct {
	db DBTX
}

// NewSessionRepo creates a SessionRepo.
func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

// GetByID returns the session or a not_found_session error.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*types.Session, error) {
	var s types.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
		}
		return nil, types.StorageError("failed to load session", err)
	}
	return &s, nil
}

// Put inserts or refreshes a session.
func (r *SessionRepo) Put(ctx context.Context, s *types.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id = EXCLUDED.user_id,
		     expires_at = EXCLUDED.expires_at`,
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return types.StorageError("failed to save session", err)
	}
	return nil
}
