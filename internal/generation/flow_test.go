package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/content"
	"recipebox/internal/ledger"
	"recipebox/internal/memstore"
	"recipebox/internal/subscription"
	"recipebox/internal/types"
)

var testNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	recipeCalls   int
	mealPlanCalls int
	err           error
}

func (g *fakeGenerator) GenerateRecipe(_ context.Context, req types.GenerateRequest) (*types.Recipe, error) {
	g.recipeCalls++
	if g.err != nil {
		return nil, g.err
	}
	return &types.Recipe{
		Title:   "Sheet Pan Gnocchi",
		Content: types.ContentBag{"ingredients": []any{"gnocchi", "peppers"}},
	}, nil
}

func (g *fakeGenerator) GenerateMealPlan(_ context.Context, req types.GenerateRequest) (*types.MealPlan, error) {
	g.mealPlanCalls++
	if g.err != nil {
		return nil, g.err
	}
	return &types.MealPlan{Title: "Busy Week", Days: req.Days}, nil
}

type recordingMetrics struct {
	rejected []types.UsageKind
}

func (m *recordingMetrics) RecordQuotaRejected(_ context.Context, kind types.UsageKind, _ types.Tier) {
	m.rejected = append(m.rejected, kind)
}

type fixture struct {
	store   *memstore.Store
	subs    *subscription.Service
	account *UserAccount
	gen     *fakeGenerator
	metrics *recordingMetrics
	flow    *Flow
}

func newFixture(t *testing.T, userID string) *fixture {
	t.Helper()
	clock := types.FixedClock{T: testNow}
	store := memstore.New()
	subs := subscription.NewService(store.Subscriptions, clock, nil)
	gen := &fakeGenerator{}
	metrics := &recordingMetrics{}
	return &fixture{
		store: store,
		subs:  subs,
		account: &UserAccount{
			UserID:        userID,
			Subscriptions: subs,
			Ledger:        ledger.NewService(store.Usage, clock, nil),
			Content:       content.NewService(store.Recipes, store.MealPlans, nil, content.WithClock(clock)),
		},
		gen:     gen,
		metrics: metrics,
		flow:    NewFlow(gen, metrics, nil),
	}
}

func TestRecipe_CountsAndStores(t *testing.T) {
	fx := newFixture(t, "alice")
	ctx := context.Background()

	res, err := fx.flow.Recipe(ctx, fx.account, types.GenerateRequest{Situation: "weeknight", FamilySize: 4})
	require.NoError(t, err)

	assert.Equal(t, "Sheet Pan Gnocchi", res.Recipe.Title)
	assert.Equal(t, "weeknight", res.Recipe.Situation)
	assert.NotEmpty(t, res.Recipe.ID)
	assert.Equal(t, 1, res.Usage.RecipesGenerated)
	assert.Equal(t, 4, res.Remaining)

	stored, err := fx.store.Recipes.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRecipe_QuotaExceededSkipsGenerator(t *testing.T) {
	fx := newFixture(t, "alice")
	fx.store.Usage.Seed(types.UsageStats{UserID: "alice", CurrentMonth: "2024-03", RecipesGenerated: 5})

	_, err := fx.flow.Recipe(context.Background(), fx.account, types.GenerateRequest{Situation: "x", FamilySize: 2})
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeQuotaRecipes, appErr.Code)
	assert.Equal(t, 0, appErr.Details["remaining"])
	assert.Zero(t, fx.gen.recipeCalls)
	assert.Equal(t, []types.UsageKind{types.UsageRecipe}, fx.metrics.rejected)

	stats, _ := fx.store.Usage.Peek("alice", "2024-03")
	assert.Equal(t, 5, stats.RecipesGenerated)
}

func TestRecipe_GatewayFailureConsumesNoQuota(t *testing.T) {
	fx := newFixture(t, "alice")
	fx.gen.err = types.NewAppError(types.ErrCodeUpstreamGeneratorOverloaded, "busy", nil)

	_, err := fx.flow.Recipe(context.Background(), fx.account, types.GenerateRequest{Situation: "x", FamilySize: 2})
	require.Error(t, err)
	assert.True(t, types.IsGatewayFailure(err))
	assert.Equal(t, 1, fx.gen.recipeCalls)

	stats, ok := fx.store.Usage.Peek("alice", "2024-03")
	require.True(t, ok)
	assert.Zero(t, stats.RecipesGenerated)

	stored, err := fx.store.Recipes.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestMealPlan_FreeTierIsFeatureGated(t *testing.T) {
	fx := newFixture(t, "alice")

	_, err := fx.flow.MealPlan(context.Background(), fx.account, types.GenerateRequest{Situation: "x", FamilySize: 2, Days: 3})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeQuotaFeatureUnavailable, types.ErrorCodeOf(err))
	assert.Zero(t, fx.gen.mealPlanCalls)
}

func TestMealPlan_UpgradedTierSucceeds(t *testing.T) {
	fx := newFixture(t, "alice")
	ctx := context.Background()
	_, err := fx.subs.UpdateSubscription(ctx, "alice", types.Subscription{Tier: types.TierPro})
	require.NoError(t, err)

	res, err := fx.flow.MealPlan(ctx, fx.account, types.GenerateRequest{Situation: "x", FamilySize: 2, Days: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.MealPlan.Days)
	assert.Equal(t, 1, res.Usage.MealPlansGenerated)
	assert.Equal(t, 9, res.Remaining)
	assert.True(t, res.Limits.CanAccessMealPlans)
}

func TestPreview_DoesNotTouchAccount(t *testing.T) {
	fx := newFixture(t, "alice")

	r, err := fx.flow.PreviewRecipe(context.Background(), types.GenerateRequest{Situation: "x", FamilySize: 1})
	require.NoError(t, err)
	assert.Empty(t, r.ID)

	_, ok := fx.store.Usage.Peek("alice", "2024-03")
	assert.False(t, ok)
}
