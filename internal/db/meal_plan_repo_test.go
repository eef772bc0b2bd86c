package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recipebox/internal/types"
)

func TestMealPlanRepo_GetAndUpdate(t *testing.T) {
	db := new(mockDBTX)
	repo := NewMealPlanRepo(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"mp1", "alice"}).
		Return(rowOf("mp1", "alice", "Soup Week", "", 5, 2, "cold weather", "May 2, 2024 9:30 AM",
			types.ContentBag{"shoppingList": []any{"leeks"}}, repoNow, repoNow))
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	mp, err := repo.Get(context.Background(), "alice", "mp1")
	require.NoError(t, err)
	assert.Equal(t, 5, mp.Days)
	assert.Equal(t, []any{"leeks"}, mp.Content["shoppingList"])

	mp.Title = "Soup Fortnight"
	require.NoError(t, repo.Update(context.Background(), mp))
	db.AssertExpectations(t)
}

func TestMealPlanRepo_Get_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewMealPlanRepo(db)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.Get(context.Background(), "bob", "mp1")
	assert.Equal(t, types.ErrCodeNotFoundMealPlan, types.ErrorCodeOf(err))
}

func TestMealPlanRepo_Delete_NotOwned(t *testing.T) {
	db := new(mockDBTX)
	repo := NewMealPlanRepo(db)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"mp1", "bob"}).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	err := repo.Delete(context.Background(), "bob", "mp1")
	assert.Equal(t, types.ErrCodeNotFoundMealPlan, types.ErrorCodeOf(err))
}
