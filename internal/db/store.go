package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the PostgreSQL repositories built on one pool.
type Store struct {
	pool *pgxpool.Pool

	Usage         *UsageRepo
	Subscriptions *SubscriptionRepo
	Recipes       *RecipeRepo
	MealPlans     *MealPlanRepo
	Preferences   *PreferencesRepo
	Calendars     *CalendarRepo
	Sessions      *SessionRepo
}

// NewStore wires every repository to pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:          pool,
		Usage:         NewUsageRepo(pool),
		Subscriptions: NewSubscriptionRepo(pool),
		Recipes:       NewRecipeRepo(pool),
		MealPlans:     NewMealPlanRepo(pool),
		Preferences:   NewPreferencesRepo(pool),
		Calendars:     NewCalendarRepo(pool),
		Sessions:      NewSessionRepo(pool),
	}
}

// Ping checks connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
