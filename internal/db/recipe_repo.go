package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"recipebox/internal/types"
)

// RecipeRepo provides owner-scoped data access for the recipes table. Every
// statement filters on owner_id, so a foreign id behaves exactly like a
// missing one.
type RecipeRepo struct {
	db DBTX
}

// NewRecipeRepo creates a RecipeRepo.
func NewRecipeRepo(db DBTX) *RecipeRepo {
	return &RecipeRepo{db: db}
}

const recipeColumns = `id, owner_id, title, description, prep_time, cook_time, servings,
	situation, tags, feedback, added, content, created_at, updated_at`

func scanRecipe(row pgx.Row) (*types.Recipe, error) {
	var r types.Recipe
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Title, &r.Description, &r.PrepTime, &r.CookTime, &r.Servings,
		&r.Situation, &r.Tags, &r.Feedback, &r.Added, &r.Content, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns the owner's recipes, newest first.
func (r *RecipeRepo) List(ctx context.Context, ownerID string) ([]*types.Recipe, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, types.StorageError("failed to list recipes", err)
	}
	defer rows.Close()

	out := make([]*types.Recipe, 0)
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, types.StorageError("failed to scan recipe row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.StorageError("error iterating recipe rows", err)
	}
	return out, nil
}

// Get returns one recipe when ownerID owns it.
func (r *RecipeRepo) Get(ctx context.Context, ownerID, id string) (*types.Recipe, error) {
	rec, err := scanRecipe(r.db.QueryRow(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recipeNotFound()
		}
		return nil, types.StorageError("failed to retrieve recipe", err)
	}
	return rec, nil
}

// Create inserts a new recipe.
func (r *RecipeRepo) Create(ctx context.Context, rec *types.Recipe) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO recipes (`+recipeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.OwnerID, rec.Title, rec.Description, rec.PrepTime, rec.CookTime, rec.Servings,
		rec.Situation, nonNilStrings(rec.Tags), rec.Feedback, rec.Added, rec.Content, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to create recipe", err)
	}
	return nil
}

// Update overwrites the mutable columns of an owned recipe.
func (r *RecipeRepo) Update(ctx context.Context, rec *types.Recipe) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE recipes
		 SET title = $3,
		     description = $4,
		     prep_time = $5,
		     cook_time = $6,
		     servings = $7,
		     situation = $8,
		     tags = $9,
		     feedback = $10,
		     content = $11,
		     updated_at = $12
		 WHERE id = $1 AND owner_id = $2`,
		rec.ID, rec.OwnerID, rec.Title, rec.Description, rec.PrepTime, rec.CookTime, rec.Servings,
		rec.Situation, nonNilStrings(rec.Tags), rec.Feedback, rec.Content, rec.UpdatedAt,
	)
	if err != nil {
		return types.StorageError("failed to update recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return recipeNotFound()
	}
	return nil
}

// Delete removes an owned recipe.
func (r *RecipeRepo) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM recipes WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return types.StorageError("failed to delete recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return recipeNotFound()
	}
	return nil
}

func recipeNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundRecipe, "recipe not found", nil)
}

// nonNilStrings keeps NOT NULL array columns from receiving SQL NULL.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
