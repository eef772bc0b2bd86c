// Package memstore is an in-process implementation of every server-side
// repository. It backs STORE_BACKEND=memory for local development and gives
// service tests a real, concurrency-safe store without PostgreSQL.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"recipebox/internal/types"
)

// Store groups the in-memory repositories behind one value so the composition
// root can hand them out the same way it hands out the PostgreSQL ones.
type Store struct {
	Usage         *UsageRepo
	Subscriptions *SubscriptionRepo
	Recipes       *RecipeRepo
	MealPlans     *MealPlanRepo
	Preferences   *PreferencesRepo
	Calendars     *CalendarRepo
	Sessions      *SessionRepo
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Usage:         NewUsageRepo(),
		Subscriptions: NewSubscriptionRepo(),
		Recipes:       NewRecipeRepo(),
		MealPlans:     NewMealPlanRepo(),
		Preferences:   NewPreferencesRepo(),
		Calendars:     NewCalendarRepo(),
		Sessions:      NewSessionRepo(),
	}
}

// Ping always succeeds; it lets the store stand in for a health probe target.
func (s *Store) Ping(context.Context) error { return nil }

// --- Usage ---

type usageKey struct {
	userID string
	month  string
}

// UsageRepo stores UsageStats per (user, month). The mutex makes Increment a
// single atomic step, matching the upsert the PostgreSQL repository issues.
type UsageRepo struct {
	mu   sync.Mutex
	rows map[usageKey]types.UsageStats
}

// NewUsageRepo returns an empty UsageRepo.
func NewUsageRepo() *UsageRepo {
	return &UsageRepo{rows: make(map[usageKey]types.UsageStats)}
}

// GetOrCreate returns the (userID, month) record, creating a zeroed one.
func (r *UsageRepo) GetOrCreate(_ context.Context, userID, month string, now time.Time) (*types.UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.lockedRow(userID, month, now)
	return &row, nil
}

// Increment adds one to the counter selected by kind.
func (r *UsageRepo) Increment(_ context.Context, userID, month string, kind types.UsageKind, now time.Time) (*types.UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.lockedRow(userID, month, now)
	if kind == types.UsageMealPlan {
		row.MealPlansGenerated++
	} else {
		row.RecipesGenerated++
	}
	r.rows[usageKey{userID, month}] = row
	return &row, nil
}

// Seed overwrites a record. Used by tests to start from a known count.
func (r *UsageRepo) Seed(stats types.UsageStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[usageKey{stats.UserID, stats.CurrentMonth}] = stats
}

// Peek returns a record without creating it.
func (r *UsageRepo) Peek(userID, month string) (types.UsageStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[usageKey{userID, month}]
	return row, ok
}

func (r *UsageRepo) lockedRow(userID, month string, now time.Time) types.UsageStats {
	key := usageKey{userID, month}
	row, ok := r.rows[key]
	if !ok {
		row = types.UsageStats{UserID: userID, CurrentMonth: month, LastReset: now}
		r.rows[key] = row
	}
	return row
}

// --- Subscriptions ---

// SubscriptionRepo stores one Subscription per user.
type SubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]types.Subscription
}

// NewSubscriptionRepo returns an empty SubscriptionRepo.
func NewSubscriptionRepo() *SubscriptionRepo {
	return &SubscriptionRepo{rows: make(map[string]types.Subscription)}
}

// GetOrCreate returns the stored subscription, inserting defaults if absent.
func (r *SubscriptionRepo) GetOrCreate(_ context.Context, defaults *types.Subscription) (*types.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[defaults.UserID]
	if !ok {
		row = *defaults
		r.rows[defaults.UserID] = row
	}
	return &row, nil
}

// Upsert replaces the subscription for sub.UserID.
func (r *SubscriptionRepo) Upsert(_ context.Context, sub *types.Subscription) (*types.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *sub
	r.rows[sub.UserID] = row
	return &row, nil
}

// --- Recipes ---

// RecipeRepo stores recipes keyed by id; every accessor is owner-scoped.
type RecipeRepo struct {
	mu   sync.RWMutex
	rows map[string]types.Recipe
}

// NewRecipeRepo returns an empty RecipeRepo.
func NewRecipeRepo() *RecipeRepo {
	return &RecipeRepo{rows: make(map[string]types.Recipe)}
}

// List returns ownerID's recipes, newest first.
func (r *RecipeRepo) List(_ context.Context, ownerID string) ([]*types.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Recipe, 0)
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			rec := row
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns the recipe only when ownerID owns it.
func (r *RecipeRepo) Get(_ context.Context, ownerID, id string) (*types.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return nil, recipeNotFound()
	}
	return &row, nil
}

// Create inserts a recipe.
func (r *RecipeRepo) Create(_ context.Context, rec *types.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rec.ID] = *rec
	return nil
}

// Update replaces an owned recipe.
func (r *RecipeRepo) Update(_ context.Context, rec *types.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[rec.ID]
	if !ok || row.OwnerID != rec.OwnerID {
		return recipeNotFound()
	}
	r.rows[rec.ID] = *rec
	return nil
}

// Delete removes an owned recipe.
func (r *RecipeRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return recipeNotFound()
	}
	delete(r.rows, id)
	return nil
}

func recipeNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundRecipe, "recipe not found", nil)
}

// --- Meal plans ---

// MealPlanRepo stores meal plans keyed by id; every accessor is owner-scoped.
type MealPlanRepo struct {
	mu   sync.RWMutex
	rows map[string]types.MealPlan
}

// NewMealPlanRepo returns an empty MealPlanRepo.
func NewMealPlanRepo() *MealPlanRepo {
	return &MealPlanRepo{rows: make(map[string]types.MealPlan)}
}

// List returns ownerID's meal plans, newest first.
func (r *MealPlanRepo) List(_ context.Context, ownerID string) ([]*types.MealPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.MealPlan, 0)
	for _, row := range r.rows {
		if row.OwnerID == ownerID {
			mp := row
			out = append(out, &mp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns the meal plan only when ownerID owns it.
func (r *MealPlanRepo) Get(_ context.Context, ownerID, id string) (*types.MealPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return nil, mealPlanNotFound()
	}
	return &row, nil
}

// Create inserts a meal plan.
func (r *MealPlanRepo) Create(_ context.Context, mp *types.MealPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[mp.ID] = *mp
	return nil
}

// Update replaces an owned meal plan.
func (r *MealPlanRepo) Update(_ context.Context, mp *types.MealPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[mp.ID]
	if !ok || row.OwnerID != mp.OwnerID {
		return mealPlanNotFound()
	}
	r.rows[mp.ID] = *mp
	return nil
}

// Delete removes an owned meal plan.
func (r *MealPlanRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.OwnerID != ownerID {
		return mealPlanNotFound()
	}
	delete(r.rows, id)
	return nil
}

func mealPlanNotFound() error {
	return types.NewAppError(types.ErrCodeNotFoundMealPlan, "meal plan not found", nil)
}

// --- Preferences ---

// PreferencesRepo stores one Preferences per user.
type PreferencesRepo struct {
	mu   sync.RWMutex
	rows map[string]types.Preferences
}

// NewPreferencesRepo returns an empty PreferencesRepo.
func NewPreferencesRepo() *PreferencesRepo {
	return &PreferencesRepo{rows: make(map[string]types.Preferences)}
}

// Get returns the stored preferences, or nil when none were saved.
func (r *PreferencesRepo) Get(_ context.Context, userID string) (*types.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// Upsert replaces the user's preferences.
func (r *PreferencesRepo) Upsert(_ context.Context, p *types.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.UserID] = *p
	return nil
}

// --- Calendar ---

// CalendarRepo stores one Calendar per user.
type CalendarRepo struct {
	mu   sync.RWMutex
	rows map[string]types.Calendar
}

// NewCalendarRepo returns an empty CalendarRepo.
func NewCalendarRepo() *CalendarRepo {
	return &CalendarRepo{rows: make(map[string]types.Calendar)}
}

// Get returns the user's calendar; an unknown user gets an empty one.
func (r *CalendarRepo) Get(_ context.Context, userID string) (*types.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[userID]
	if !ok {
		return &types.Calendar{UserID: userID, Assignments: map[string]string{}}, nil
	}
	assignments := make(map[string]string, len(row.Assignments))
	for k, v := range row.Assignments {
		assignments[k] = v
	}
	row.Assignments = assignments
	return &row, nil
}

// Put replaces the user's calendar.
func (r *CalendarRepo) Put(_ context.Context, cal *types.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[cal.UserID] = *cal
	return nil
}

// --- Sessions ---

// SessionRepo stores sessions by id.
type SessionRepo struct {
	mu   sync.RWMutex
	rows map[string]types.Session
}

// NewSessionRepo returns an empty SessionRepo.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{rows: make(map[string]types.Session)}
}

// GetByID returns the session or not_found_session.
func (r *SessionRepo) GetByID(_ context.Context, id string) (*types.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
	}
	return &row, nil
}

// Put stores a session. The dev server seeds sessions through this.
func (r *SessionRepo) Put(_ context.Context, s *types.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = *s
	return nil
}
