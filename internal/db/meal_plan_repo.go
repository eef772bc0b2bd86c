package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"recipebox/internal/types"
)

// MealPlanRepo provides owner-scoped data access for the meal_plans table.
type MealPlanRepo struct {
	db DBTX
}

// NewMealPlanRepo creates a MealPlanRepo.
func NewMealPlanRepo(db DBTX) *MealPlanRepo {
	return &MealPlanRepo{db: db}
}

const mealPlanColumns = `id, owner_id, title, description, days, servings, situation,
	added, content, created_at, updated_at`

func scanMealPlan(row pgx.Row) (*types.MealPlan, error) {
	var m types.MealPlan
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.Description, &m.Days, &m.Servings, &m.Situation,
		&m.Added, &m.Content, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the owner's meal plans, newest first.
func (r *MealPlanRepo) List(ctx context.Context, ownerID string) ([]*types.MealPlan, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, types.StorageError("failed to list meal plans", err)
	}
	defer rows.Close()

	out := make([]*types.MealPlan, 0)
	for rows.Next() {
		mp, err := scanMealPlan(rows)
		if err != nil {
			return nil, types.StorageError("failed to scan meal plan row", err)
		}
		out = append(out, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("error iterating meal plan rows", err)
	}
	return out, nil
}

// Get returns one meal plan when ownerID owns it.
func (r *MealPlanRepo) Get(ctx context.Context, ownerID, id string) (*types.MealPlan, error) {
	mp, err := scanMealPlan(r.db.QueryRow(ctx,
		`SELECT `+mealPlanColumns+`
		 FROM meal_plans
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mealPlanNotFound()
		}
		return nil, types.StorageError("failed to retrieve meal plan", err)
	}
	return mp, nil
}

// Create inserts a new meal plan.
func (r *MealPlanRepo) Create(ctx context.Context, mp *types.MealPlan) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO meal_plans (`+mealPlanColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		mp.ID, mp.OwnerID, mp.Title, mp.Description, mp.Days, mp.Servings, mp.Situation,
		mp.Added, mp.Content, mp.CreatedAt, mp.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to create meal plan", err)
	}
	return nil
}

// Update overwrites the mutable columns of an owned meal plan.
func (r *MealPlanRepo) Update(ctx context.Context, mp *types.MealPlan) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE meal_plans
		 SET title = $3,
		     description = $4,
		     days = $5,
		     servings = $6,
		     situation = $7,
		     content = $8,
		     updated_at = $9
		 WHERE id = $1 AND owner_id = $2`,
		mp.ID, mp.OwnerID, mp.Title, mp.Description, mp.Days, mp.Servings, mp.Situation,
		mp.Content, mp.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to update meal plan", err)
	}
	if tag.RowsAffected() == 0 {
		return mealPlanNotFound()
	}
	return nil
}

// Delete removes an owned meal plan.
func (r *MealPlanRepo) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM meal_plans WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return types.StorageError("failed to delete meal plan", err)
	}
	if tag.RowsAffected() == 0 {
		return mealPlanNotFound()
	}
	return nil
}

func mealPlanNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundMealPlan, "meal plan not found", nil)
}
