package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recipebox/internal/types"
)

func TestPreferencesRepo_Get_NoRowIsNil(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPreferencesRepo(db)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"u1"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	p, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPreferencesRepo_Upsert(t *testing.T) {
	db := new(mockDBTX)
	repo := NewPreferencesRepo(db)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{"u1", 3, "beginner", []string{"vegetarian"}, []string{}, repoNow}).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Upsert(context.Background(), &types.Preferences{
		UserID:              "u1",
		FamilySize:          3,
		SkillLevel:          "beginner",
		DietaryRestrictions: []string{"vegetarian"},
		UpdatedAt:           repoNow,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestCalendarRepo_Get(t *testing.T) {
	t.Run("missing row yields empty calendar", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewCalendarRepo(db)
		db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Return(&mockRow{scanErr: pgx.ErrNoRows})

		cal, err := repo.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", cal.UserID)
		assert.Empty(t, cal.Assignments)
		assert.NotNil(t, cal.Assignments)
	})

	t.Run("stored assignments", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewCalendarRepo(db)
		db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Return(rowOf(map[string]string{"2024-05-06": "mp1"}, repoNow))

		cal, err := repo.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "mp1", cal.Assignments["2024-05-06"])
	})

	t.Run("store down", func(t *testing.T) {
		db := new(mockDBTX)
		repo := NewCalendarRepo(db)
		db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Return(&mockRow{scanErr: errors.New("eof")})

		_, err := repo.Get(context.Background(), "u1")
		assert.True(t, types.IsStorageUnavailable(err))
	})
}

func TestSessionRepo_GetByID(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSessionRepo(db)
	expires := repoNow.Add(24 * time.Hour)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"s1"}).
		Return(rowOf("s1", "u1", expires, repoNow))
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"missing"}).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	s, err := repo.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, expires, s.ExpiresAt)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.Equal(t, types.ErrCodeNotFoundSession, types.ErrorCodeOf(err))
}
