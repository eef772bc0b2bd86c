// Package ledger tracks per-user, per-calendar-month generation counters.
//
// A month's record is created lazily the first time it is read or
// incremented. Earlier months are never touched again, so they remain as
// history. Increments are delegated to the repository as a single atomic
// upsert; the service never reads a counter and writes it back.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"recipebox/internal/types"
)

// monthKeyLayout renders a zero-padded YYYY-MM key.
const monthKeyLayout = "2006-01"

// UsageRepository persists UsageStats keyed by (userID, month).
type UsageRepository interface {
	// GetOrCreate returns the record for (userID, month), inserting a zeroed
	// one stamped with now if none exists.
	GetOrCreate(ctx context.Context, userID, month string, now time.Time) (*types.UsageStats, error)

	// Increment atomically adds one to the counter selected by kind on the
	// (userID, month) record, creating the record if needed, and returns the
	// post-increment snapshot.
	Increment(ctx context.Context, userID, month string, kind types.UsageKind, now time.Time) (*types.UsageStats, error)
}

// MonthKey formats t as the ledger's month key.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthKeyLayout)
}

// Service is the usage ledger for one backing store.
type Service struct {
	repo   UsageRepository
	clock  types.Clock
	logger *slog.Logger
}

// NewService creates a ledger over repo. A nil clock means the real clock.
func NewService(repo UsageRepository, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock, logger: logger}
}

// CurrentMonthKey returns the month key for the service clock's now.
func (s *Service) CurrentMonthKey() string {
	return MonthKey(s.clock.Now())
}

// GetUsage returns the current month's counters, creating a zeroed record on
// the first read of a new month.
func (s *Service) GetUsage(ctx context.Context, userID string) (*types.UsageStats, error) {
	now := s.clock.Now()
	stats, err := s.repo.GetOrCreate(ctx, userID, MonthKey(now), now)
	if err != nil {
		return nil, asStorageError("failed to load usage", err)
	}
	return stats, nil
}

// IncrementRecipeUsage records one generated recipe. Callers check
// entitlement.CanGenerateRecipe first.
func (s *Service) IncrementRecipeUsage(ctx context.Context, userID string) (*types.UsageStats, error) {
	return s.Increment(ctx, userID, types.UsageRecipe)
}

// IncrementMealPlanUsage records one generated meal plan. Callers check
// entitlement.CanGenerateMealPlan first.
func (s *Service) IncrementMealPlanUsage(ctx context.Context, userID string) (*types.UsageStats, error) {
	return s.Increment(ctx, userID, types.UsageMealPlan)
}

// Increment records one generation of kind on the current month.
func (s *Service) Increment(ctx context.Context, userID string, kind types.UsageKind) (*types.UsageStats, error) {
	if !kind.IsValid() {
		return nil, types.NewAppError(types.ErrCodeValidationUsageType,
			"usage type must be \"recipe\" or \"mealPlan\"", nil)
	}
	now := s.clock.Now()
	month := MonthKey(now)
	stats, err := s.repo.Increment(ctx, userID, month, kind, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "usage increment failed",
			"user_id", userID,
			"month", month,
			"kind", string(kind),
			"error", err,
		)
		return nil, asStorageError("failed to record usage", err)
	}
	return stats, nil
}

// asStorageError keeps AppErrors as they are and classifies anything else as
// storage_unavailable.
func asStorageError(message string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.StorageError(message, err)
}
