// Package entitlement decides what a subscriber may do. Every function is a
// pure lookup over the static tier table and the caller's usage snapshot.
package entitlement

import "recipebox/internal/types"

// tierLimits is the authoritative limits table.
//
//	| Tier   | Recipes/mo | Meal plans/mo | Edit | Meal plans | Unlimited save |
//	|--------|------------|---------------|------|------------|----------------|
//	| free   | 5          | 0             | no   | no         | no             |
//	| pro    | 50         | 10            | yes  | yes        | yes            |
//	| family | 150        | 30            | yes  | yes        | yes            |
var tierLimits = map[types.Tier]types.Limits{
	types.TierFree: {
		RecipesPerMonth:    5,
		MealPlansPerMonth:  0,
		CanEditRecipes:     false,
		CanAccessMealPlans: false,
		CanSaveUnlimited:   false,
	},
	types.TierPro: {
		RecipesPerMonth:    50,
		MealPlansPerMonth:  10,
		CanEditRecipes:     true,
		CanAccessMealPlans: true,
		CanSaveUnlimited:   true,
	},
	types.TierFamily: {
		RecipesPerMonth:    150,
		MealPlansPerMonth:  30,
		CanEditRecipes:     true,
		CanAccessMealPlans: true,
		CanSaveUnlimited:   true,
	},
}

// LimitsFor returns the limits for tier. Tiers are validated at every input
// boundary; an unknown tier here gets the free limits so a bad row can never
// grant more than the most restrictive plan.
func LimitsFor(tier types.Tier) types.Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[types.TierFree]
}

// CanGenerateRecipe reports whether one more recipe fits this month's quota.
// Subscription status is not consulted.
func CanGenerateRecipe(sub types.Subscription, usage types.UsageStats) bool {
	return usage.RecipesGenerated < LimitsFor(sub.Tier).RecipesPerMonth
}

// CanGenerateMealPlan requires meal-plan access on the tier and remaining
// monthly headroom.
func CanGenerateMealPlan(sub types.Subscription, usage types.UsageStats) bool {
	l := LimitsFor(sub.Tier)
	return l.CanAccessMealPlans && usage.MealPlansGenerated < l.MealPlansPerMonth
}

// CanEditRecipe depends on the tier only.
func CanEditRecipe(sub types.Subscription) bool {
	return LimitsFor(sub.Tier).CanEditRecipes
}

// CanAccessMealPlans depends on the tier only.
func CanAccessMealPlans(sub types.Subscription) bool {
	return LimitsFor(sub.Tier).CanAccessMealPlans
}

// Allowed dispatches to the predicate for kind.
func Allowed(sub types.Subscription, usage types.UsageStats, kind types.UsageKind) bool {
	if kind == types.UsageMealPlan {
		return CanGenerateMealPlan(sub, usage)
	}
	return CanGenerateRecipe(sub, usage)
}

// Remaining returns max(0, limit - used) for the counter selected by kind.
func Remaining(sub types.Subscription, usage types.UsageStats, kind types.UsageKind) int {
	l := LimitsFor(sub.Tier)
	limit := l.RecipesPerMonth
	if kind == types.UsageMealPlan {
		limit = l.MealPlansPerMonth
	}
	if r := limit - usage.Count(kind); r > 0 {
		return r
	}
	return 0
}

// Summary is the entitlement view returned alongside usage.
type Summary struct {
	Usage     types.UsageStats `json:"usage"`
	Limits    types.Limits     `json:"limits"`
	Remaining RemainingCounts  `json:"remaining"`
}

// RemainingCounts holds the headroom for both counters.
type RemainingCounts struct {
	Recipes   int `json:"recipes"`
	MealPlans int `json:"mealPlans"`
}

// Summarize builds a Summary for sub and usage.
func Summarize(sub types.Subscription, usage types.UsageStats) Summary {
	return Summary{
		Usage:  usage,
		Limits: LimitsFor(sub.Tier),
		Remaining: RemainingCounts{
			Recipes:   Remaining(sub, usage, types.UsageRecipe),
			MealPlans: Remaining(sub, usage, types.UsageMealPlan),
		},
	}
}

// QuotaError builds the QuotaExceeded error for kind. A tier without
// meal-plan access gets quota_feature_unavailable instead of a counter error.
func QuotaError(sub types.Subscription, usage types.UsageStats, kind types.UsageKind) *types.AppError {
	details := map[string]any{
		"tier":      string(sub.Tier),
		"remaining": Remaining(sub, usage, kind),
	}
	if kind == types.UsageMealPlan {
		if !CanAccessMealPlans(sub) {
			return types.NewAppErrorWithDetails(types.ErrCodeQuotaFeatureUnavailable,
				"meal plans are not included in your plan", nil, details)
		}
		return types.NewAppErrorWithDetails(types.ErrCodeQuotaMealPlans,
			"monthly meal plan limit reached", nil, details)
	}
	return types.NewAppErrorWithDetails(types.ErrCodeQuotaRecipes,
		"monthly recipe limit reached", nil, details)
}
