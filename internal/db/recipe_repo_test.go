package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recipebox/internal/types"
)

func recipeRow(id, owner string) []any {
	return []any{
		id, owner, "Lemon Orzo", "bright and quick", "10 min", "15 min", 4,
		"weeknight", []string{"quick"}, types.FeedbackLike, "May 2, 2024 9:30 AM",
		types.ContentBag{"ingredients": []any{"orzo", "lemon"}}, repoNow, repoNow,
	}
}

func TestRecipeRepo_List_ScopesToOwner(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)

	rows := newMockRows(recipeRow("r1", "alice"), recipeRow("r2", "alice"))
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{"alice"}).
		Run(func(args mock.Arguments) {
			assert.Contains(t, args.Get(1).(string), "WHERE owner_id = $1")
		}).
		Return(rows, nil)

	out, err := repo.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "r1", out[0].ID)
	assert.Equal(t, types.FeedbackLike, out[0].Feedback)
	assert.Equal(t, []any{"orzo", "lemon"}, out[1].Content["ingredients"])
	assert.True(t, rows.closed)
}

func TestRecipeRepo_List_EmptyIsNotNil(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(newMockRows(), nil)

	out, err := repo.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRecipeRepo_List_QueryErrorIsStorageUnavailable(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	_, err := repo.List(context.Background(), "alice")
	assert.True(t, types.IsStorageUnavailable(err))
}

func TestRecipeRepo_Get_ForeignOrMissingIsNotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"r1", "bob"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.Get(context.Background(), "bob", "r1")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(err))
}

func TestRecipeRepo_Get_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"r1", "alice"}).
		Return(rowOf(recipeRow("r1", "alice")...))

	rec, err := repo.Get(context.Background(), "alice", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Lemon Orzo", rec.Title)
	assert.Equal(t, "alice", rec.OwnerID)
}

func TestRecipeRepo_Create_NilTagsBecomeEmptyArray(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			params := args.Get(2).([]any)
			assert.Equal(t, []string{}, params[8])
		}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(context.Background(), &types.Recipe{ID: "r1", OwnerID: "alice", Title: "Toast"})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecipeRepo_Update_NoRowsIsNotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewRecipeRepo(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			assert.Contains(t, args.Get(1).(string), "WHERE id = $1 AND owner_id = $2")
		}).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Update(context.Background(), &types.Recipe{ID: "r1", OwnerID: "bob", Title: "hijack"})
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestRecipeRepo_Delete(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		execErr  error
		wantCode types.ErrorCode
	}{
		{"deleted", "DELETE 1", nil, ""},
		{"not owned", "DELETE 0", nil, types.ErrCodeNotFoundRecipe},
		{"store down", "", errors.New("broken pipe"), types.ErrCodeStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			repo := NewRecipeRepo(db)
			db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"r1", "alice"}).
				Return(pgconn.NewCommandTag(tt.tag), tt.execErr)

			err := repo.Delete(context.Background(), "alice", "r1")
			assert.Equal(t, tt.wantCode, types.ErrorCodeOf(err))
		})
	}
}
