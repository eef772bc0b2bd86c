package persistence

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"recipebox/internal/content"
	"recipebox/internal/ledger"
	"recipebox/internal/local"
	"recipebox/internal/types"
)

// localBackend implements every routed operation over the unscoped device
// store. Each layout key is serialized independently; a missing or malformed
// value reads as "no data".
type localBackend struct {
	store  local.Store
	clock  types.Clock
	newID  func() string
	logger *slog.Logger

	// mu serializes read-modify-write sequences within this process.
	mu sync.Mutex
}

func (b *localBackend) load(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := b.store.Get(ctx, key)
	if err != nil {
		return false, types.StorageError("local store read failed", err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		b.logger.WarnContext(ctx, "discarding malformed local entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (b *localBackend) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode local entry", err)
	}
	if err := b.store.Put(ctx, key, raw); err != nil {
		return types.StorageError("local store write failed", err)
	}
	return nil
}

// purgeContent drops recipes, meal plans and the calendar that points at them.
func (b *localBackend) purgeContent(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Delete(ctx, local.KeyRecipes, local.KeyMealPlans, local.KeyCalendar); err != nil {
		return types.StorageError("local store purge failed", err)
	}
	return nil
}

// purgeAccountRecords drops the subscription and usage records that a
// signed-in fallback stamped with a user id. Anonymous device records stay.
func (b *localBackend) purgeAccountRecords(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var owned []string
	var sub types.Subscription
	found, err := b.load(ctx, local.KeySubscription, &sub)
	if err != nil {
		return err
	}
	if found && sub.UserID != "" {
		owned = append(owned, local.KeySubscription)
	}
	var usage types.UsageStats
	found, err = b.load(ctx, local.KeyUsage, &usage)
	if err != nil {
		return err
	}
	if found && usage.UserID != "" {
		owned = append(owned, local.KeyUsage)
	}
	if len(owned) == 0 {
		return nil
	}
	if err := b.store.Delete(ctx, owned...); err != nil {
		return types.StorageError("local store purge failed", err)
	}
	return nil
}

// --- Recipes ---

func (b *localBackend) recipes(ctx context.Context) ([]*types.Recipe, error) {
	var out []*types.Recipe
	if _, err := b.load(ctx, local.KeyRecipes, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.Recipe{}
	}
	return out, nil
}

func (b *localBackend) listRecipes(ctx context.Context) ([]*types.Recipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recipes(ctx)
}

func (b *localBackend) getRecipe(ctx context.Context, id string) (*types.Recipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.recipes(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundRecipe, "recipe not found", nil)
}

func (b *localBackend) createRecipe(ctx context.Context, draft types.Recipe) (*types.Recipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.recipes(ctx)
	if err != nil {
		return nil, err
	}
	now := b.clock.Now()
	r := draft
	r.ID = b.newID()
	r.OwnerID = ""
	r.Added = content.FormatAdded(now)
	r.CreatedAt = now
	r.UpdatedAt = now
	if !r.Feedback.IsValid() {
		r.Feedback = types.FeedbackNone
	}
	list = append([]*types.Recipe{&r}, list...)
	if err := b.save(ctx, local.KeyRecipes, list); err != nil {
		return nil, err
	}
	return &r, nil
}

// mutateRecipe applies fn to the recipe with id and saves the list.
func (b *localBackend) mutateRecipe(ctx context.Context, id string, fn func(*types.Recipe)) (*types.Recipe, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.recipes(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID != id {
			continue
		}
		fn(r)
		r.UpdatedAt = b.clock.Now()
		if err := b.save(ctx, local.KeyRecipes, list); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundRecipe, "recipe not found", nil)
}

func (b *localBackend) deleteRecipe(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.recipes(ctx)
	if err != nil {
		return err
	}
	for i, r := range list {
		if r.ID == id {
			list = append(list[:i], list[i+1:]...)
			return b.save(ctx, local.KeyRecipes, list)
		}
	}
	return types.NewAppError(types.ErrCodeNotFoundRecipe, "recipe not found", nil)
}

// --- Meal plans ---

func (b *localBackend) mealPlans(ctx context.Context) ([]*types.MealPlan, error) {
	var out []*types.MealPlan
	if _, err := b.load(ctx, local.KeyMealPlans, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.MealPlan{}
	}
	return out, nil
}

func (b *localBackend) listMealPlans(ctx context.Context) ([]*types.MealPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mealPlans(ctx)
}

func (b *localBackend) getMealPlan(ctx context.Context, id string) (*types.MealPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.mealPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, mp := range list {
		if mp.ID == id {
			return mp, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundMealPlan, "meal plan not found", nil)
}

func (b *localBackend) createMealPlan(ctx context.Context, draft types.MealPlan) (*types.MealPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.mealPlans(ctx)
	if err != nil {
		return nil, err
	}
	now := b.clock.Now()
	mp := draft
	mp.ID = b.newID()
	mp.OwnerID = ""
	mp.Added = content.FormatAdded(now)
	mp.CreatedAt = now
	mp.UpdatedAt = now
	list = append([]*types.MealPlan{&mp}, list...)
	if err := b.save(ctx, local.KeyMealPlans, list); err != nil {
		return nil, err
	}
	return &mp, nil
}

func (b *localBackend) updateMealPlan(ctx context.Context, id string, patch types.MealPlanPatch) (*types.MealPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.mealPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, mp := range list {
		if mp.ID != id {
			continue
		}
		patch.Apply(mp)
		mp.UpdatedAt = b.clock.Now()
		if err := b.save(ctx, local.KeyMealPlans, list); err != nil {
			return nil, err
		}
		return mp, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundMealPlan, "meal plan not found", nil)
}

func (b *localBackend) deleteMealPlan(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.mealPlans(ctx)
	if err != nil {
		return err
	}
	for i, mp := range list {
		if mp.ID == id {
			list = append(list[:i], list[i+1:]...)
			return b.save(ctx, local.KeyMealPlans, list)
		}
	}
	return types.NewAppError(types.ErrCodeNotFoundMealPlan, "meal plan not found", nil)
}

// --- Usage ---

// currentUsage returns the device's usage record for this month. A record
// from an earlier month is replaced by a zeroed one.
func (b *localBackend) currentUsage(ctx context.Context) (*types.UsageStats, error) {
	now := b.clock.Now()
	month := ledger.MonthKey(now)

	var u types.UsageStats
	found, err := b.load(ctx, local.KeyUsage, &u)
	if err != nil {
		return nil, err
	}
	if found && u.CurrentMonth == month {
		return &u, nil
	}
	fresh := &types.UsageStats{CurrentMonth: month, LastReset: now}
	if err := b.save(ctx, local.KeyUsage, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (b *localBackend) getUsage(ctx context.Context) (*types.UsageStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentUsage(ctx)
}

// incrementUsage counts one generation on the device record. A non-empty
// owner marks the record as written on behalf of a signed-in account.
func (b *localBackend) incrementUsage(ctx context.Context, kind types.UsageKind, owner string) (*types.UsageStats, error) {
	if !kind.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationUsageType, "unknown usage type", nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, err := b.currentUsage(ctx)
	if err != nil {
		return nil, err
	}
	if owner != "" {
		u.UserID = owner
	}
	if kind == types.UsageMealPlan {
		u.MealPlansGenerated++
	} else {
		u.RecipesGenerated++
	}
	if err := b.save(ctx, local.KeyUsage, u); err != nil {
		return nil, err
	}
	return u, nil
}

// --- Subscription ---

func (b *localBackend) getSubscription(ctx context.Context) (*types.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sub types.Subscription
	found, err := b.load(ctx, local.KeySubscription, &sub)
	if err != nil {
		return nil, err
	}
	if found && sub.Tier.IsValid() {
		return &sub, nil
	}
	def := types.DefaultSubscription("", b.clock.Now())
	if err := b.save(ctx, local.KeySubscription, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (b *localBackend) updateSubscription(ctx context.Context, next types.Subscription) (*types.Subscription, error) {
	if err := validateSubscription(&next); err != nil {
		return nil, err
	}
	now := b.clock.Now()
	if next.StartDate.IsZero() {
		next.StartDate = now
	}
	next.UpdatedAt = now

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.save(ctx, local.KeySubscription, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// --- Calendar ---

func (b *localBackend) getCalendar(ctx context.Context) (*types.Calendar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var cal types.Calendar
	if _, err := b.load(ctx, local.KeyCalendar, &cal); err != nil {
		return nil, err
	}
	if cal.Assignments == nil {
		cal.Assignments = map[string]string{}
	}
	return &cal, nil
}

func (b *localBackend) putCalendar(ctx context.Context, assignments map[string]string) (*types.Calendar, error) {
	if err := content.ValidateAssignments(assignments); err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = map[string]string{}
	}
	cal := &types.Calendar{Assignments: assignments, UpdatedAt: b.clock.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.save(ctx, local.KeyCalendar, cal); err != nil {
		return nil, err
	}
	return cal, nil
}

func validateSubscription(sub *types.Subscription) error {
	if !sub.Tier.IsValid() {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationTier, "unknown subscription tier", nil,
			map[string]any{"tier": string(sub.Tier)})
	}
	if sub.Status == "" {
		sub.Status = types.SubStatusActive
	}
	if !sub.Status.IsValid() {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidValue, "unknown subscription status", nil,
			map[string]any{"status": string(sub.Status)})
	}
	return nil
}
