package db

import (
	"context"

	"recipebox/internal/types"
)

// SubscriptionRepo stores one subscription row per user.
type SubscriptionRepo struct {
	db DBTX
}

// NewSubscriptionRepo creates a SubscriptionRepo.
func NewSubscriptionRepo(db DBTX) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

const subscriptionColumns = `user_id, tier, status, start_date, end_date, auto_renew, updated_at`

// GetOrCreate returns the stored subscription for defaults.UserID, inserting
// defaults when the user has none yet.
func (r *SubscriptionRepo) GetOrCreate(ctx context.Context, defaults *types.Subscription) (*types.Subscription, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, tier, status, start_date, end_date, auto_renew, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING `+subscriptionColumns,
		defaults.UserID, defaults.Tier, defaults.Status, defaults.StartDate,
		defaults.EndDate, defaults.AutoRenew, defaults.UpdatedAt,
	)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, types.StorageError("failed to load subscription", err)
	}
	return sub, nil
}

// Upsert fully replaces the user's subscription.
func (r *SubscriptionRepo) Upsert(ctx context.Context, sub *types.Subscription) (*types.Subscription, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, tier, status, start_date, end_date, auto_renew, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE
		 SET tier = EXCLUDED.tier,
		     status = EXCLUDED.status,
		     start_date = EXCLUDED.start_date,
		     end_date = EXCLUDED.end_date,
		     auto_renew = EXCLUDED.auto_renew,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+subscriptionColumns,
		sub.UserID, sub.Tier, sub.Status, sub.StartDate, sub.EndDate, sub.AutoRenew, sub.UpdatedAt,
	)
	saved, err := scanSubscription(row)
	if err != nil {
		return nil, types.StorageError("failed to save subscription", err)
	}
	return saved, nil
}

func scanSubscription(row interface{ Scan(dest ...any) error }) (*types.Subscription, error) {
	var s types.Subscription
	if err := row.Scan(&s.UserID, &s.Tier, &s.Status, &s.StartDate, &s.EndDate, &s.AutoRenew, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
