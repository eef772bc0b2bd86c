package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"recipebox/internal/types"
)

// PreferencesRepo stores one preferences row per user.
type PreferencesRepo struct {
	db DBTX
}

// NewPreferencesRepo creates a PreferencesRepo.
func NewPreferencesRepo(db DBTX) *PreferencesRepo {
	return &PreferencesRepo{db: db}
}

// Get returns the saved preferences, or nil when the user has none.
func (r *PreferencesRepo) Get(ctx context.Context, userID string) (*types.Preferences, error) {
	var p types.Preferences
	err := r.db.QueryRow(ctx,
		`SELECT user_id, family_size, skill_level, dietary_restrictions, cuisines, updated_at
		 FROM preferences
		 WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.FamilySize, &p.SkillLevel, &p.DietaryRestrictions, &p.Cuisines, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.StorageError("failed to load preferences", err)
	}
	return &p, nil
}

// Upsert replaces the user's preferences.
func (r *PreferencesRepo) Upsert(ctx context.Context, p *types.Preferences) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO preferences (user_id, family_size, skill_level, dietary_restrictions, cuisines, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE
		 SET family_size = EXCLUDED.family_size,
		     skill_level = EXCLUDED.skill_level,
		     dietary_restrictions = EXCLUDED.dietary_restrictions,
		     cuisines = EXCLUDED.cuisines,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FamilySize, p.SkillLevel,
		nonNilStrings(p.DietaryRestrictions), nonNilStrings(p.Cuisines), p.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to save preferences", err)
	}
	return nil
}
