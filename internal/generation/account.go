package generation

import (
	"context"

	"recipebox/internal/types"
)

// SubscriptionReader is the subset of subscription.Service used here.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, userID string) (*types.Subscription, error)
}

// UsageLedger is the subset of ledger.Service used here.
type UsageLedger interface {
	GetUsage(ctx context.Context, userID string) (*types.UsageStats, error)
	Increment(ctx context.Context, userID string, kind types.UsageKind) (*types.UsageStats, error)
}

// ContentWriter is the subset of content.Service used here.
type ContentWriter interface {
	CreateRecipe(ctx context.Context, ownerID string, draft types.Recipe) (*types.Recipe, error)
	CreateMealPlan(ctx context.Context, ownerID string, draft types.MealPlan) (*types.MealPlan, error)
}

// UserAccount binds the server-side services to one authenticated user.
type UserAccount struct {
	UserID        string
	Subscriptions SubscriptionReader
	Ledger        UsageLedger
	Content       ContentWriter
}

var _ Account = (*UserAccount)(nil)

func (a *UserAccount) GetSubscription(ctx context.Context) (*types.Subscription, error) {
	return a.Subscriptions.GetSubscription(ctx, a.UserID)
}

func (a *UserAccount) GetUsage(ctx context.Context) (*types.UsageStats, error) {
	return a.Ledger.GetUsage(ctx, a.UserID)
}

func (a *UserAccount) IncrementUsage(ctx context.Context, kind types.UsageKind) (*types.UsageStats, error) {
	return a.Ledger.Increment(ctx, a.UserID, kind)
}

func (a *UserAccount) SaveRecipe(ctx context.Context, draft types.Recipe) (*types.Recipe, error) {
	return a.Content.CreateRecipe(ctx, a.UserID, draft)
}

func (a *UserAccount) SaveMealPlan(ctx context.Context, draft types.MealPlan) (*types.MealPlan, error) {
	return a.Content.CreateMealPlan(ctx, a.UserID, draft)
}
