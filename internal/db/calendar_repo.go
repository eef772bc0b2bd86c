package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"recipebox/internal/types"
)

// CalendarRepo stores each user's date assignments as a JSONB map.
type CalendarRepo struct {
	db DBTX
}

// NewCalendarRepo creates a CalendarRepo.
func NewCalendarRepo(db DBTX) *CalendarRepo {
	return &CalendarRepo{db: db}
}

// Get returns the user's calendar. A user without a row gets an empty one.
func (r *CalendarRepo) Get(ctx context.Context, userID string) (*types.Calendar, error) {
	cal := types.Calendar{UserID: userID}
	err := r.db.QueryRow(ctx,
		`SELECT assignments, updated_at FROM calendars WHERE user_id = $1`,
		userID,
	).Scan(&cal.Assignments, &cal.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, types.StorageError("failed to load calendar", err)
	}
	if cal.Assignments == nil {
		cal.Assignments = map[string]string{}
	}
	return &cal, nil
}

// Put replaces the user's calendar.
func (r *CalendarRepo) Put(ctx context.Context, cal *types.Calendar) error {
	assignments := cal.Assignments
	if assignments == nil {
		assignments = map[string]string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO calendars (user_id, assignments, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET assignments = EXCLUDED.assignments,
		     updated_at = EXCLUDED.updated_at`,
		cal.UserID, assignments, cal.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to save calendar", err)
	}
	return nil
}
