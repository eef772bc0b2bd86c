package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/types"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRecipeRepo_OwnerScoping(t *testing.T) {
	repo := NewRecipeRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &types.Recipe{ID: "r1", OwnerID: "alice", Title: "Soup", CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &types.Recipe{ID: "r2", OwnerID: "alice", Title: "Stew", CreatedAt: now.Add(time.Hour)}))

	list, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID, "newest first")

	list, err = repo.List(ctx, "bob")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = repo.Get(ctx, "bob", "r1")
	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(err))

	err = repo.Update(ctx, &types.Recipe{ID: "r1", OwnerID: "bob", Title: "Hijacked"})
	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(err))
	got, err := repo.Get(ctx, "alice", "r1")
	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Title)

	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(repo.Delete(ctx, "bob", "r1")))
	require.NoError(t, repo.Delete(ctx, "alice", "r1"))
	_, err = repo.Get(ctx, "alice", "r1")
	assert.Error(t, err)
}

func TestMealPlanRepo_OwnerScoping(t *testing.T) {
	repo := NewMealPlanRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &types.MealPlan{ID: "m1", OwnerID: "alice", Title: "Week", CreatedAt: now}))

	_, err := repo.Get(ctx, "bob", "m1")
	assert.Equal(t, types.ErrCodeNotFoundMealPlan, types.ErrorCodeOf(err))
	assert.Equal(t, types.ErrCodeNotFoundMealPlan, types.ErrorCodeOf(repo.Delete(ctx, "bob", "m1")))

	got, err := repo.Get(ctx, "alice", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Week", got.Title)
}

func TestUsageRepo_ConcurrentIncrement(t *testing.T) {
	repo := NewUsageRepo()
	repo.Seed(types.UsageStats{UserID: "alice", CurrentMonth: "2024-03", RecipesGenerated: 3})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Increment(ctx, "alice", "2024-03", types.UsageRecipe, now)
		}()
	}
	wg.Wait()

	row, ok := repo.Peek("alice", "2024-03")
	require.True(t, ok)
	assert.Equal(t, 53, row.RecipesGenerated)
	assert.Zero(t, row.MealPlansGenerated)
}

func TestSubscriptionRepo_GetOrCreateKeepsExisting(t *testing.T) {
	repo := NewSubscriptionRepo()
	ctx := context.Background()

	_, err := repo.Upsert(ctx, &types.Subscription{UserID: "alice", Tier: types.TierPro, Status: types.SubStatusActive})
	require.NoError(t, err)

	got, err := repo.GetOrCreate(ctx, types.DefaultSubscription("alice", now))
	require.NoError(t, err)
	assert.Equal(t, types.TierPro, got.Tier)

	got, err = repo.GetOrCreate(ctx, types.DefaultSubscription("bob", now))
	require.NoError(t, err)
	assert.Equal(t, types.TierFree, got.Tier)
}

func TestCalendarRepo_ReturnsCopies(t *testing.T) {
	repo := NewCalendarRepo()
	ctx := context.Background()

	empty, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, empty.Assignments)

	require.NoError(t, repo.Put(ctx, &types.Calendar{UserID: "alice", Assignments: map[string]string{"2024-03-04": "m1"}}))
	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	got.Assignments["2024-03-05"] = "m2"

	again, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2024-03-04": "m1"}, again.Assignments)
}

func TestSessionAndPreferences(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Sessions.GetByID(ctx, "sess_missing")
	assert.Equal(t, types.ErrCodeNotFoundSession, types.ErrorCodeOf(err))

	prefs, err := s.Preferences.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, prefs)

	require.NoError(t, s.Preferences.Upsert(ctx, &types.Preferences{UserID: "alice", FamilySize: 3, SkillLevel: "beginner"}))
	prefs, err = s.Preferences.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, prefs.FamilySize)

	assert.NoError(t, s.Ping(ctx))
}
