// Package persistence routes device-side reads and writes to either the
// remote API (while signed in) or the device-local store (while signed out).
//
// Rules, evaluated on every call:
//   - signed in: the remote store only; the local store is never read.
//   - signed out: the local store only.
//   - on the transition to signed in, local recipes, meal plans and calendar
//     are purged. Nothing is uploaded.
//   - usage increments and subscription updates that fail remotely because
//     the remote side is unreachable are written locally instead, and the
//     local result is returned. No sync-back exists.
//   - on the transition to signed out, those fallback records are dropped.
//   - content CRUD never falls back.
package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"recipebox/internal/content"
	"recipebox/internal/generation"
	"recipebox/internal/local"
	"recipebox/internal/types"
)

// RemoteStore is the authenticated, owner-scoped backend.
type RemoteStore interface {
	ListRecipes(ctx context.Context, id Identity) ([]*types.Recipe, error)
	GetRecipe(ctx context.Context, id Identity, recipeID string) (*types.Recipe, error)
	CreateRecipe(ctx context.Context, id Identity, draft types.Recipe) (*types.Recipe, error)
	UpdateRecipe(ctx context.Context, id Identity, recipeID string, patch types.RecipePatch) (*types.Recipe, error)
	DeleteRecipe(ctx context.Context, id Identity, recipeID string) error
	SetRecipeFeedback(ctx context.Context, id Identity, recipeID string, fb types.Feedback) (*types.Recipe, error)

	ListMealPlans(ctx context.Context, id Identity) ([]*types.MealPlan, error)
	GetMealPlan(ctx context.Context, id Identity, mealPlanID string) (*types.MealPlan, error)
	CreateMealPlan(ctx context.Context, id Identity, draft types.MealPlan) (*types.MealPlan, error)
	UpdateMealPlan(ctx context.Context, id Identity, mealPlanID string, patch types.MealPlanPatch) (*types.MealPlan, error)
	DeleteMealPlan(ctx context.Context, id Identity, mealPlanID string) error

	GetUsage(ctx context.Context, id Identity) (*types.UsageStats, error)
	IncrementUsage(ctx context.Context, id Identity, kind types.UsageKind) (*types.UsageStats, error)
	GetSubscription(ctx context.Context, id Identity) (*types.Subscription, error)
	UpdateSubscription(ctx context.Context, id Identity, sub types.Subscription) (*types.Subscription, error)

	GetCalendar(ctx context.Context, id Identity) (*types.Calendar, error)
	PutCalendar(ctx context.Context, id Identity, assignments map[string]string) (*types.Calendar, error)
}

// Router is the single place that decides remote versus local.
type Router struct {
	remote   RemoteStore
	local    *localBackend
	identity IdentitySource
	logger   *slog.Logger

	mu       sync.Mutex
	lastAuth *bool
}

var _ generation.Account = (*Router)(nil)

// Option customizes a Router.
type Option func(*Router)

// WithClock overrides the time source used for local records.
func WithClock(c types.Clock) Option {
	return func(r *Router) { r.local.clock = c }
}

// WithIDFunc overrides identifier generation for local records.
func WithIDFunc(fn func() string) Option {
	return func(r *Router) { r.local.newID = fn }
}

// NewRouter creates a Router.
func NewRouter(remote RemoteStore, store local.Store, identity IdentitySource, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		remote: remote,
		local: &localBackend{
			store:  store,
			clock:  types.RealClock{},
			newID:  content.NewID,
			logger: logger,
		},
		identity: identity,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SignIn purges local content and then records id as the current identity.
func (r *Router) SignIn(ctx context.Context, id Identity) error {
	if !id.Authenticated() {
		return types.NewAppError(types.ErrCodeAuthTokenMissing, "sign in requires a user and token", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.purgeContent(ctx); err != nil {
		return err
	}
	if err := r.identity.Set(ctx, id); err != nil {
		return types.StorageError("failed to record sign in", err)
	}
	r.setLastAuth(true)
	r.logger.InfoContext(ctx, "signed in; local content purged", "user_id", id.UserID)
	return nil
}

// SignOut forgets the current identity and drops any subscription or usage
// record a fallback wrote locally for that account, so the next signed-out
// session starts from the device's own records. Content written while signed
// out earlier was already purged at sign in.
func (r *Router) SignOut(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.identity.Clear(ctx); err != nil {
		return types.StorageError("failed to record sign out", err)
	}
	if err := r.local.purgeAccountRecords(ctx); err != nil {
		return err
	}
	r.setLastAuth(false)
	r.logger.InfoContext(ctx, "signed out; account records purged")
	return nil
}

// Identity returns the current identity.
func (r *Router) Identity(ctx context.Context) (Identity, error) {
	id, _, err := r.resolve(ctx)
	return id, err
}

// resolve reads the identity. A transition it observes without SignIn or
// SignOut gets the same local cleanup those calls do.
func (r *Router) resolve(ctx context.Context) (Identity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.identity.Current(ctx)
	if err != nil {
		return Identity{}, false, types.StorageError("failed to read identity", err)
	}
	authed := id.Authenticated()
	if authed && r.lastAuth != nil && !*r.lastAuth {
		if err := r.local.purgeContent(ctx); err != nil {
			return Identity{}, false, err
		}
		r.logger.InfoContext(ctx, "identity became authenticated; local content purged", "user_id", id.UserID)
	}
	if !authed && r.lastAuth != nil && *r.lastAuth {
		if err := r.local.purgeAccountRecords(ctx); err != nil {
			return Identity{}, false, err
		}
		r.logger.InfoContext(ctx, "identity cleared; account records purged")
	}
	r.setLastAuth(authed)
	return id, authed, nil
}

func (r *Router) setLastAuth(v bool) {
	r.lastAuth = &v
}

// --- Recipes ---

// ListRecipes returns the current owner's recipes.
func (r *Router) ListRecipes(ctx context.Context) ([]*types.Recipe, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.ListRecipes(ctx, id)
	}
	return r.local.listRecipes(ctx)
}

// GetRecipe returns one recipe, or not_found_recipe when it is missing or
// belongs to someone else.
func (r *Router) GetRecipe(ctx context.Context, recipeID string) (*types.Recipe, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.GetRecipe(ctx, id, recipeID)
	}
	return r.local.getRecipe(ctx, recipeID)
}

// SaveRecipe stores a new recipe.
func (r *Router) SaveRecipe(ctx context.Context, draft types.Recipe) (*types.Recipe, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.CreateRecipe(ctx, id, draft)
	}
	return r.local.createRecipe(ctx, draft)
}

// UpdateRecipe applies patch to an existing recipe.
func (r *Router) UpdateRecipe(ctx context.Context, recipeID string, patch types.RecipePatch) (*types.Recipe, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.UpdateRecipe(ctx, id, recipeID, patch)
	}
	return r.local.mutateRecipe(ctx, recipeID, patch.Apply)
}

// DeleteRecipe removes a recipe.
func (r *Router) DeleteRecipe(ctx context.Context, recipeID string) error {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	if authed {
		return r.remote.DeleteRecipe(ctx, id, recipeID)
	}
	return r.local.deleteRecipe(ctx, recipeID)
}

// SetRecipeFeedback sets the recipe's feedback. An empty value clears it.
func (r *Router) SetRecipeFeedback(ctx context.Context, recipeID string, fb types.Feedback) (*types.Recipe, error) {
	if !fb.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationFeedback, "feedback must be \"like\", \"dislike\" or empty", nil)
	}
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.SetRecipeFeedback(ctx, id, recipeID, fb)
	}
	return r.local.mutateRecipe(ctx, recipeID, func(rec *types.Recipe) { rec.Feedback = fb })
}

// --- Meal plans ---

// ListMealPlans returns the current owner's meal plans.
func (r *Router) ListMealPlans(ctx context.Context) ([]*types.MealPlan, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.ListMealPlans(ctx, id)
	}
	return r.local.listMealPlans(ctx)
}

// GetMealPlan returns one meal plan, or not_found_meal_plan.
func (r *Router) GetMealPlan(ctx context.Context, mealPlanID string) (*types.MealPlan, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.GetMealPlan(ctx, id, mealPlanID)
	}
	return r.local.getMealPlan(ctx, mealPlanID)
}

// SaveMealPlan stores a new meal plan.
func (r *Router) SaveMealPlan(ctx context.Context, draft types.MealPlan) (*types.MealPlan, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.CreateMealPlan(ctx, id, draft)
	}
	return r.local.createMealPlan(ctx, draft)
}

// UpdateMealPlan applies patch to an existing meal plan.
func (r *Router) UpdateMealPlan(ctx context.Context, mealPlanID string, patch types.MealPlanPatch) (*types.MealPlan, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.UpdateMealPlan(ctx, id, mealPlanID, patch)
	}
	return r.local.updateMealPlan(ctx, mealPlanID, patch)
}

// DeleteMealPlan removes a meal plan.
func (r *Router) DeleteMealPlan(ctx context.Context, mealPlanID string) error {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	if authed {
		return r.remote.DeleteMealPlan(ctx, id, mealPlanID)
	}
	return r.local.deleteMealPlan(ctx, mealPlanID)
}

// --- Usage and subscription ---

// GetUsage returns this month's usage, starting a zeroed month when needed.
// Reads never fall back to the local store.
func (r *Router) GetUsage(ctx context.Context) (*types.UsageStats, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.GetUsage(ctx, id)
	}
	return r.local.getUsage(ctx)
}

// IncrementUsage counts one generation of kind. While signed in, an
// unreachable remote store causes the increment to land locally instead.
func (r *Router) IncrementUsage(ctx context.Context, kind types.UsageKind) (*types.UsageStats, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !authed {
		return r.local.incrementUsage(ctx, kind, "")
	}
	usage, err := r.remote.IncrementUsage(ctx, id, kind)
	if err == nil || !remoteUnreachable(err) {
		return usage, err
	}
	r.logger.WarnContext(ctx, "remote usage increment failed; writing locally",
		"operation", "increment_usage",
		"user_id", id.UserID,
		"kind", string(kind),
		"error", err,
	)
	return r.local.incrementUsage(ctx, kind, id.UserID)
}

// IncrementRecipeUsage is IncrementUsage for recipes.
func (r *Router) IncrementRecipeUsage(ctx context.Context) (*types.UsageStats, error) {
	return r.IncrementUsage(ctx, types.UsageRecipe)
}

// IncrementMealPlanUsage is IncrementUsage for meal plans.
func (r *Router) IncrementMealPlanUsage(ctx context.Context) (*types.UsageStats, error) {
	return r.IncrementUsage(ctx, types.UsageMealPlan)
}

// GetSubscription returns the subscription, creating the free default on
// first read.
func (r *Router) GetSubscription(ctx context.Context) (*types.Subscription, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.GetSubscription(ctx, id)
	}
	return r.local.getSubscription(ctx)
}

// UpdateSubscription replaces the subscription, falling back to the local
// store when signed in and the remote store is unreachable.
func (r *Router) UpdateSubscription(ctx context.Context, next types.Subscription) (*types.Subscription, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !authed {
		return r.local.updateSubscription(ctx, next)
	}
	sub, err := r.remote.UpdateSubscription(ctx, id, next)
	if err == nil || !remoteUnreachable(err) {
		return sub, err
	}
	r.logger.WarnContext(ctx, "remote subscription update failed; writing locally",
		"operation", "update_subscription",
		"user_id", id.UserID,
		"tier", string(next.Tier),
		"error", err,
	)
	next.UserID = id.UserID
	return r.local.updateSubscription(ctx, next)
}

// --- Calendar ---

// GetCalendar returns the day-to-meal-plan assignments.
func (r *Router) GetCalendar(ctx context.Context) (*types.Calendar, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.GetCalendar(ctx, id)
	}
	return r.local.getCalendar(ctx)
}

// PutCalendar replaces the day-to-meal-plan assignments.
func (r *Router) PutCalendar(ctx context.Context, assignments map[string]string) (*types.Calendar, error) {
	id, authed, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if authed {
		return r.remote.PutCalendar(ctx, id, assignments)
	}
	return r.local.putCalendar(ctx, assignments)
}

// remoteUnreachable reports whether err means the remote side could not
// serve the request, as opposed to rejecting it.
func remoteUnreachable(err error) bool {
	switch types.ErrorCodeOf(err) {
	case types.ErrCodeStorageUnavailable, types.ErrCodeUpstreamUnavailable, types.ErrCodeUpstreamRateLimited:
		return true
	}
	var appErr *types.AppError
	return !errors.As(err, &appErr)
}
