package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/local"
	"recipebox/internal/types"
)

func TestLocal_MalformedEntriesReadAsNoData(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()
	for _, key := range []string{local.KeyRecipes, local.KeyMealPlans, local.KeyUsage, local.KeySubscription, local.KeyCalendar} {
		require.NoError(t, fx.store.Store.Put(ctx, key, []byte(`{not json`)))
	}

	recipes, err := fx.router.ListRecipes(ctx)
	require.NoError(t, err)
	assert.Empty(t, recipes)

	plans, err := fx.router.ListMealPlans(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)

	usage, err := fx.router.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-04", usage.CurrentMonth)
	assert.Zero(t, usage.RecipesGenerated)

	sub, err := fx.router.GetSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TierFree, sub.Tier)

	cal, err := fx.router.GetCalendar(ctx)
	require.NoError(t, err)
	assert.Empty(t, cal.Assignments)
}

func TestLocal_UsageRollsOverOnNewMonth(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Store.Put(ctx, local.KeyUsage,
		[]byte(`{"currentMonth":"2024-03","recipesGenerated":5,"mealPlansGenerated":2}`)))

	usage, err := fx.router.GetUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-04", usage.CurrentMonth)
	assert.Zero(t, usage.RecipesGenerated)
	assert.Zero(t, usage.MealPlansGenerated)
	assert.Equal(t, routerNow, usage.LastReset)

	usage, err = fx.router.IncrementRecipeUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.RecipesGenerated)
}

func TestLocal_IncrementRejectsUnknownKind(t *testing.T) {
	fx := newRouterFixture(t)
	_, err := fx.router.IncrementUsage(context.Background(), types.UsageKind("snack"))
	assert.Equal(t, types.ErrCodeValidationUsageType, types.ErrorCodeOf(err))
}

func TestLocal_RecipeLifecycle(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()

	first, err := fx.router.SaveRecipe(ctx, types.Recipe{
		Title:   "Shakshuka",
		Content: types.ContentBag{"ingredients": []any{"eggs"}, "notes": "spicy"},
	})
	require.NoError(t, err)
	second, err := fx.router.SaveRecipe(ctx, types.Recipe{Title: "Flatbread"})
	require.NoError(t, err)

	list, err := fx.router.ListRecipes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	title := "Green Shakshuka"
	updated, err := fx.router.UpdateRecipe(ctx, first.ID, types.RecipePatch{
		Title:   &title,
		Content: types.ContentBag{"notes": "mild"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Green Shakshuka", updated.Title)
	assert.Equal(t, "mild", updated.Content["notes"])
	assert.Equal(t, []any{"eggs"}, updated.Content["ingredients"])

	rated, err := fx.router.SetRecipeFeedback(ctx, first.ID, types.FeedbackDislike)
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackDislike, rated.Feedback)

	_, err = fx.router.SetRecipeFeedback(ctx, first.ID, types.Feedback("meh"))
	assert.Equal(t, types.ErrCodeValidationFeedback, types.ErrorCodeOf(err))

	got, err := fx.router.GetRecipe(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackDislike, got.Feedback)

	require.NoError(t, fx.router.DeleteRecipe(ctx, first.ID))
	_, err = fx.router.GetRecipe(ctx, first.ID)
	assert.True(t, types.IsNotFound(err))

	err = fx.router.DeleteRecipe(ctx, first.ID)
	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(err))
}

func TestLocal_MealPlanLifecycle(t *testing.T) {
	fx := newRouterFixture(t)
	ctx := context.Background()

	mp, err := fx.router.SaveMealPlan(ctx, types.MealPlan{Title: "Prep Sunday", Days: 5})
	require.NoError(t, err)

	days := 7
	mp, err = fx.router.UpdateMealPlan(ctx, mp.ID, types.MealPlanPatch{Days: &days})
	require.NoError(t, err)
	assert.Equal(t, 7, mp.Days)

	got, err := fx.router.GetMealPlan(ctx, mp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prep Sunday", got.Title)

	require.NoError(t, fx.router.DeleteMealPlan(ctx, mp.ID))
	_, err = fx.router.UpdateMealPlan(ctx, mp.ID, types.MealPlanPatch{Days: &days})
	assert.Equal(t, types.ErrCodeNotFoundMealPlan, types.ErrorCodeOf(err))
}

func TestLocal_CalendarValidation(t *testing.T) {
	fx := newRouterFixture(t)
	_, err := fx.router.PutCalendar(context.Background(), map[string]string{"04/19/2024": "r1"})
	assert.Equal(t, types.ErrCodeValidationCalendarDate, types.ErrorCodeOf(err))
}

func TestStoredIdentity_KeepsTokenAcrossInstances(t *testing.T) {
	store := local.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, NewStoredIdentity(store).Set(ctx, alice))

	got, err := NewStoredIdentity(store).Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "sess_alice", got.Token.Unmask())
	assert.True(t, got.Authenticated())

	require.NoError(t, NewStoredIdentity(store).Clear(ctx))
	got, err = NewStoredIdentity(store).Current(ctx)
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}
