package db

import (
	"context"
	"time"

	"recipebox/internal/types"
)

// UsageRepo stores one usage_stats row per (user_id, month). Rows for past
// months are never touched again, which keeps them as history.
type UsageRepo struct {
	db DBTX
}

// NewUsageRepo creates a UsageRepo backed by the given pool or transaction.
func NewUsageRepo(db DBTX) *UsageRepo {
	return &UsageRepo{db: db}
}

const usageColumns = `user_id, month, recipes_generated, meal_plans_generated, last_reset`

// GetOrCreate returns the row for (userID, month), inserting a zeroed one
// stamped with now when absent. The no-op DO UPDATE makes RETURNING yield the
// existing row on conflict.
func (r *UsageRepo) GetOrCreate(ctx context.Context, userID, month string, now time.Time) (*types.UsageStats, error) {
	var u types.UsageStats
	err := r.db.QueryRow(ctx,
		`INSERT INTO usage_stats (user_id, month, last_reset)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, month) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING `+usageColumns,
		userID, month, now,
	).Scan(&u.UserID, &u.CurrentMonth, &u.RecipesGenerated, &u.MealPlansGenerated, &u.LastReset)
	if err != nil {
		return nil, types.StorageError("failed to load usage", err)
	}
	return &u, nil
}

// Increment adds one to the counter for kind in a single upsert statement, so
// concurrent callers never lose an update.
func (r *UsageRepo) Increment(ctx context.Context, userID, month string, kind types.UsageKind, now time.Time) (*types.UsageStats, error) {
	if !kind.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationUsageType, "unknown usage type", nil)
	}
	recipes, mealPlans := 0, 0
	if kind == types.UsageMealPlan {
		mealPlans = 1
	} else {
		recipes = 1
	}

	var u types.UsageStats
	err := r.db.QueryRow(ctx,
		`INSERT INTO usage_stats (user_id, month, recipes_generated, meal_plans_generated, last_reset)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, month) DO UPDATE
		 SET recipes_generated = usage_stats.recipes_generated + EXCLUDED.recipes_generated,
		     meal_plans_generated = usage_stats.meal_plans_generated + EXCLUDED.meal_plans_generated
		 RETURNING `+usageColumns,
		userID, month, recipes, mealPlans, now,
	).Scan(&u.UserID, &u.CurrentMonth, &u.RecipesGenerated, &u.MealPlansGenerated, &u.LastReset)
	if err != nil {
		return nil, types.StorageError("failed to increment usage", err)
	}
	return &u, nil
}
