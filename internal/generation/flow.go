// Package generation runs the generate-then-count-then-store sequence shared
// by the API server and the device client.
//
// The order is fixed: the caller's entitlement is checked first, the content
// generator is only invoked when the check passes, usage is counted only after
// the generator succeeded, and the resulting entity is persisted last. A
// generator failure therefore never consumes quota.
package generation

import (
	"context"
	"log/slog"

	"recipebox/internal/entitlement"
	"recipebox/internal/types"
)

// Generator produces draft content. Implementations return classified
// upstream_* AppErrors on failure.
type Generator interface {
	GenerateRecipe(ctx context.Context, req types.GenerateRequest) (*types.Recipe, error)
	GenerateMealPlan(ctx context.Context, req types.GenerateRequest) (*types.MealPlan, error)
}

// Account is the per-caller view of subscription, usage and content storage.
// The server binds it to a user id; the device binds it to the persistence
// router.
type Account interface {
	GetSubscription(ctx context.Context) (*types.Subscription, error)
	GetUsage(ctx context.Context) (*types.UsageStats, error)
	IncrementUsage(ctx context.Context, kind types.UsageKind) (*types.UsageStats, error)
	SaveRecipe(ctx context.Context, draft types.Recipe) (*types.Recipe, error)
	SaveMealPlan(ctx context.Context, draft types.MealPlan) (*types.MealPlan, error)
}

// QuotaMetrics receives a signal whenever a request is refused by policy.
type QuotaMetrics interface {
	RecordQuotaRejected(ctx context.Context, kind types.UsageKind, tier types.Tier)
}

type noopQuotaMetrics struct{}

func (noopQuotaMetrics) RecordQuotaRejected(context.Context, types.UsageKind, types.Tier) {}

// RecipeResult is the outcome of a successful recipe generation.
type RecipeResult struct {
	Recipe    *types.Recipe     `json:"recipe"`
	Usage     *types.UsageStats `json:"usage"`
	Remaining int               `json:"remaining"`
	Limits    types.Limits      `json:"limits"`
}

// MealPlanResult is the outcome of a successful meal plan generation.
type MealPlanResult struct {
	MealPlan  *types.MealPlan   `json:"mealPlan"`
	Usage     *types.UsageStats `json:"usage"`
	Remaining int               `json:"remaining"`
	Limits    types.Limits      `json:"limits"`
}

// Flow executes generations against a Generator.
type Flow struct {
	gen     Generator
	metrics QuotaMetrics
	logger  *slog.Logger
}

// NewFlow creates a Flow. metrics may be nil.
func NewFlow(gen Generator, metrics QuotaMetrics, logger *slog.Logger) *Flow {
	if metrics == nil {
		metrics = noopQuotaMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{gen: gen, metrics: metrics, logger: logger}
}

// Recipe generates, counts and stores one recipe for acct.
func (f *Flow) Recipe(ctx context.Context, acct Account, req types.GenerateRequest) (*RecipeResult, error) {
	sub, err := f.admit(ctx, acct, types.UsageRecipe)
	if err != nil {
		return nil, err
	}

	draft, err := f.gen.GenerateRecipe(ctx, req)
	if err != nil {
		f.logger.WarnContext(ctx, "recipe generation failed", "error", err, "code", types.ErrorCodeOf(err))
		return nil, err
	}
	if draft.Situation == "" {
		draft.Situation = req.Situation
	}

	usage, err := acct.IncrementUsage(ctx, types.UsageRecipe)
	if err != nil {
		return nil, err
	}

	saved, err := acct.SaveRecipe(ctx, *draft)
	if err != nil {
		return nil, err
	}

	return &RecipeResult{
		Recipe:    saved,
		Usage:     usage,
		Remaining: entitlement.Remaining(*sub, *usage, types.UsageRecipe),
		Limits:    entitlement.LimitsFor(sub.Tier),
	}, nil
}

// MealPlan generates, counts and stores one meal plan for acct.
func (f *Flow) MealPlan(ctx context.Context, acct Account, req types.GenerateRequest) (*MealPlanResult, error) {
	sub, err := f.admit(ctx, acct, types.UsageMealPlan)
	if err != nil {
		return nil, err
	}

	draft, err := f.gen.GenerateMealPlan(ctx, req)
	if err != nil {
		f.logger.WarnContext(ctx, "meal plan generation failed", "error", err, "code", types.ErrorCodeOf(err))
		return nil, err
	}
	if draft.Situation == "" {
		draft.Situation = req.Situation
	}

	usage, err := acct.IncrementUsage(ctx, types.UsageMealPlan)
	if err != nil {
		return nil, err
	}

	saved, err := acct.SaveMealPlan(ctx, *draft)
	if err != nil {
		return nil, err
	}

	return &MealPlanResult{
		MealPlan:  saved,
		Usage:     usage,
		Remaining: entitlement.Remaining(*sub, *usage, types.UsageMealPlan),
		Limits:    entitlement.LimitsFor(sub.Tier),
	}, nil
}

// PreviewRecipe runs the generator alone: nothing is checked, counted or stored.
// Device clients use it and account for the result themselves.
func (f *Flow) PreviewRecipe(ctx context.Context, req types.GenerateRequest) (*types.Recipe, error) {
	return f.gen.GenerateRecipe(ctx, req)
}

// PreviewMealPlan is the meal plan counterpart of PreviewRecipe.
func (f *Flow) PreviewMealPlan(ctx context.Context, req types.GenerateRequest) (*types.MealPlan, error) {
	return f.gen.GenerateMealPlan(ctx, req)
}

func (f *Flow) admit(ctx context.Context, acct Account, kind types.UsageKind) (*types.Subscription, error) {
	sub, err := acct.GetSubscription(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := acct.GetUsage(ctx)
	if err != nil {
		return nil, err
	}
	if !entitlement.Allowed(*sub, *usage, kind) {
		f.metrics.RecordQuotaRejected(ctx, kind, sub.Tier)
		f.logger.InfoContext(ctx, "generation refused by quota",
			"kind", string(kind),
			"tier", string(sub.Tier),
			"used", usage.Count(kind),
		)
		return nil, entitlement.QuotaError(*sub, *usage, kind)
	}
	return sub, nil
}
