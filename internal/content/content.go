// Package content manages user-owned recipes and meal plans on the server.
// Every read and write is scoped to an owner; a record owned by someone else
// is reported exactly like a missing one.
package content

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"recipebox/internal/types"
)

// AddedLayout is the human-readable creation stamp stored on new entities.
const AddedLayout = "Jan 2, 2006 3:04 PM"

// RecipeRepository persists recipes. Get, Update and Delete must return a
// not_found_recipe AppError when the id is absent or owned by another user.
type RecipeRepository interface {
	List(ctx context.Context, ownerID string) ([]*types.Recipe, error)
	Get(ctx context.Context, ownerID, id string) (*types.Recipe, error)
	Create(ctx context.Context, r *types.Recipe) error
	Update(ctx context.Context, r *types.Recipe) error
	Delete(ctx context.Context, ownerID, id string) error
}

// MealPlanRepository persists meal plans with the same ownership contract.
type MealPlanRepository interface {
	List(ctx context.Context, ownerID string) ([]*types.MealPlan, error)
	Get(ctx context.Context, ownerID, id string) (*types.MealPlan, error)
	Create(ctx context.Context, mp *types.MealPlan) error
	Update(ctx context.Context, mp *types.MealPlan) error
	Delete(ctx context.Context, ownerID, id string) error
}

// NewID returns a time-ordered unique identifier (UUIDv7: millisecond
// timestamp plus random bits).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Service implements recipe and meal plan CRUD.
type Service struct {
	recipes   RecipeRepository
	mealPlans MealPlanRepository
	clock     types.Clock
	newID     func() string
	logger    *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithIDFunc overrides identifier generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock overrides the time source.
func WithClock(c types.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates a content Service.
func NewService(recipes RecipeRepository, mealPlans MealPlanRepository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		recipes:   recipes,
		mealPlans: mealPlans,
		clock:     types.RealClock{},
		newID:     NewID,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListRecipes returns the owner's recipes.
func (s *Service) ListRecipes(ctx context.Context, ownerID string) ([]*types.Recipe, error) {
	out, err := s.recipes.List(ctx, ownerID)
	if err != nil {
		return nil, classify("failed to list recipes", err)
	}
	return out, nil
}

// GetRecipe returns one owned recipe.
func (s *Service) GetRecipe(ctx context.Context, ownerID, id string) (*types.Recipe, error) {
	r, err := s.recipes.Get(ctx, ownerID, id)
	if err != nil {
		return nil, classify("failed to load recipe", err)
	}
	return r, nil
}

// CreateRecipe stores draft for ownerID, assigning a fresh id and "added"
// stamp. Any id on the draft is ignored.
func (s *Service) CreateRecipe(ctx context.Context, ownerID string, draft types.Recipe) (*types.Recipe, error) {
	now := s.clock.Now()
	r := draft
	r.ID = s.newID()
	r.OwnerID = ownerID
	r.Added = FormatAdded(now)
	r.CreatedAt = now
	r.UpdatedAt = now
	if !r.Feedback.IsValid() {
		r.Feedback = types.FeedbackNone
	}
	if err := s.recipes.Create(ctx, &r); err != nil {
		return nil, classify("failed to save recipe", err)
	}
	s.logger.DebugContext(ctx, "recipe created", "user_id", ownerID, "recipe_id", r.ID)
	return &r, nil
}

// UpdateRecipe merges patch into an owned recipe.
func (s *Service) UpdateRecipe(ctx context.Context, ownerID, id string, patch types.RecipePatch) (*types.Recipe, error) {
	r, err := s.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(r)
	r.UpdatedAt = s.clock.Now()
	if err := s.recipes.Update(ctx, r); err != nil {
		return nil, classify("failed to update recipe", err)
	}
	return r, nil
}

// DeleteRecipe removes an owned recipe.
func (s *Service) DeleteRecipe(ctx context.Context, ownerID, id string) error {
	if err := s.recipes.Delete(ctx, ownerID, id); err != nil {
		return classify("failed to delete recipe", err)
	}
	return nil
}

// SetFeedback records the like/dislike signal on an owned recipe.
func (s *Service) SetFeedback(ctx context.Context, ownerID, id string, fb types.Feedback) (*types.Recipe, error) {
	if !fb.IsValid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationFeedback,
			"feedback must be \"like\", \"dislike\" or empty", nil,
			map[string]any{"feedback": string(fb)})
	}
	r, err := s.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	r.Feedback = fb
	r.UpdatedAt = s.clock.Now()
	if err := s.recipes.Update(ctx, r); err != nil {
		return nil, classify("failed to save feedback", err)
	}
	return r, nil
}

// ListMealPlans returns the owner's meal plans.
func (s *Service) ListMealPlans(ctx context.Context, ownerID string) ([]*types.MealPlan, error) {
	out, err := s.mealPlans.List(ctx, ownerID)
	if err != nil {
		return nil, classify("failed to list meal plans", err)
	}
	return out, nil
}

// GetMealPlan returns one owned meal plan.
func (s *Service) GetMealPlan(ctx context.Context, ownerID, id string) (*types.MealPlan, error) {
	mp, err := s.mealPlans.Get(ctx, ownerID, id)
	if err != nil {
		return nil, classify("failed to load meal plan", err)
	}
	return mp, nil
}

// CreateMealPlan stores draft for ownerID with a fresh id and "added" stamp.
func (s *Service) CreateMealPlan(ctx context.Context, ownerID string, draft types.MealPlan) (*types.MealPlan, error) {
	now := s.clock.Now()
	mp := draft
	mp.ID = s.newID()
	mp.OwnerID = ownerID
	mp.Added = FormatAdded(now)
	mp.CreatedAt = now
	mp.UpdatedAt = now
	if err := s.mealPlans.Create(ctx, &mp); err != nil {
		return nil, classify("failed to save meal plan", err)
	}
	s.logger.DebugContext(ctx, "meal plan created", "user_id", ownerID, "meal_plan_id", mp.ID)
	return &mp, nil
}

// UpdateMealPlan merges patch into an owned meal plan.
func (s *Service) UpdateMealPlan(ctx context.Context, ownerID, id string, patch types.MealPlanPatch) (*types.MealPlan, error) {
	mp, err := s.GetMealPlan(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(mp)
	mp.UpdatedAt = s.clock.Now()
	if err := s.mealPlans.Update(ctx, mp); err != nil {
		return nil, classify("failed to update meal plan", err)
	}
	return mp, nil
}

// DeleteMealPlan removes an owned meal plan.
func (s *Service) DeleteMealPlan(ctx context.Context, ownerID, id string) error {
	if err := s.mealPlans.Delete(ctx, ownerID, id); err != nil {
		return classify("failed to delete meal plan", err)
	}
	return nil
}

// FormatAdded renders t as an "added" stamp.
func FormatAdded(t time.Time) string {
	return t.Format(AddedLayout)
}

func classify(message string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.StorageError(message, err)
}

// CalendarDateLayout is the key format of calendar assignments.
const CalendarDateLayout = "2006-01-02"

// ValidateAssignments checks that every key is a calendar date and every
// value names an entity.
func ValidateAssignments(assignments map[string]string) error {
	for date, id := range assignments {
		if _, err := time.Parse(CalendarDateLayout, date); err != nil {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationCalendarDate,
				"calendar dates must be YYYY-MM-DD", err, map[string]any{"date": date})
		}
		if id == "" {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationCalendarDate,
				"calendar entry has no recipe or meal plan", nil, map[string]any{"date": date})
		}
	}
	return nil
}
