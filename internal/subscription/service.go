// Package subscription owns the per-user subscription record. Records are
// created implicitly on first read and change only through Update; there is
// no billing integration and no expiry sweep.
package subscription

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"recipebox/internal/types"
)

// Repository persists one Subscription per user.
type Repository interface {
	// GetOrCreate returns the user's subscription, inserting defaults when
	// none exists. It must not overwrite an existing record.
	GetOrCreate(ctx context.Context, defaults *types.Subscription) (*types.Subscription, error)

	// Upsert replaces the tier, status, period and auto-renew fields.
	Upsert(ctx context.Context, sub *types.Subscription) (*types.Subscription, error)
}

// Service reads and writes subscriptions for one backing store.
type Service struct {
	repo   Repository
	clock  types.Clock
	logger *slog.Logger
	group  singleflight.Group
}

// NewService creates a Service. A nil clock means the real clock.
func NewService(repo Repository, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, logger: logger}
}

// GetSubscription returns the user's subscription, creating the free default
// on first sight. Concurrent first reads for one user share a single store
// round trip.
//
// The shared load runs detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done, and the load completes for
// the others.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*types.Subscription, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID, func() (any, error) {
		return s.repo.GetOrCreate(shared, types.DefaultSubscription(userID, s.clock.Now()))
	})

	select {
	case <-ctx.Done():
		return nil, asStorageError("failed to load subscription", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, asStorageError("failed to load subscription", res.Err)
		}
		sub := *res.Val.(*types.Subscription)
		return &sub, nil
	}
}

// UpdateSubscription fully replaces the user's subscription. Period ordering
// is not checked here. Usage for the current month is left as is, so an
// upgrade takes effect against the counts already recorded.
func (s *Service) UpdateSubscription(ctx context.Context, userID string, next types.Subscription) (*types.Subscription, error) {
	if !next.Tier.IsValid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationTier, "unknown subscription tier", nil,
			map[string]any{"tier": string(next.Tier)})
	}
	if next.Status == "" {
		next.Status = types.SubStatusActive
	}
	if !next.Status.IsValid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidValue, "unknown subscription status", nil,
			map[string]any{"status": string(next.Status)})
	}
	now := s.clock.Now()
	if next.StartDate.IsZero() {
		next.StartDate = now
	}
	next.UserID = userID
	next.UpdatedAt = now

	saved, err := s.repo.Upsert(ctx, &next)
	if err != nil {
		return nil, asStorageError("failed to save subscription", err)
	}
	s.logger.InfoContext(ctx, "subscription updated",
		"user_id", userID,
		"tier", string(saved.Tier),
		"status", string(saved.Status),
	)
	return saved, nil
}

func asStorageError(message string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.StorageError(message, err)
}
