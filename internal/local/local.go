// Package local holds the device-side key/value stores used while no one is
// signed in. Values are opaque byte slices; callers own serialization. A Get
// for an absent key returns (nil, nil).
package local

import (
	"context"
	"fmt"
	"regexp"
)

// Well-known keys of the device store layout.
const (
	KeyRecipes      = "recipes"
	KeyMealPlans    = "mealPlans"
	KeySubscription = "subscription"
	KeyUsage        = "usage"
	KeyCalendar     = "calendar"
	KeySession      = "session"
)

// Store is implemented by FileStore, RedisStore and MemoryStore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("local: invalid key %q", key)
	}
	return nil
}
