package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipebox/internal/core"
	"recipebox/internal/entitlement"
	"recipebox/internal/types"
)

// MealPlanService is the meal plan half of content.Service.
type MealPlanService interface {
	ListMealPlans(ctx context.Context, ownerID string) ([]*types.MealPlan, error)
	GetMealPlan(ctx context.Context, ownerID, id string) (*types.MealPlan, error)
	CreateMealPlan(ctx context.Context, ownerID string, draft types.MealPlan) (*types.MealPlan, error)
	UpdateMealPlan(ctx context.Context, ownerID, id string, patch types.MealPlanPatch) (*types.MealPlan, error)
	DeleteMealPlan(ctx context.Context, ownerID, id string) error
}

// MealPlanResponse wraps a single meal plan.
type MealPlanResponse struct {
	MealPlan *types.MealPlan `json:"mealPlan"`
}

// MealPlanListResponse wraps the caller's meal plans.
type MealPlanListResponse struct {
	MealPlans []*types.MealPlan `json:"mealPlans"`
}

// MealPlanHandler serves /v1/meal-plans.
type MealPlanHandler struct {
	mealPlans     MealPlanService
	subscriptions SubscriptionReader
	validator     *core.Validator
	logger        *slog.Logger
}

// NewMealPlanHandler creates a MealPlanHandler.
func NewMealPlanHandler(mealPlans MealPlanService, subs SubscriptionReader, v *core.Validator, l *slog.Logger) *MealPlanHandler {
	if l == nil {
		l = slog.Default()
	}
	return &MealPlanHandler{mealPlans: mealPlans, subscriptions: subs, validator: v, logger: l}
}

// RegisterRoutes mounts meal plan routes.
func (h *MealPlanHandler) RegisterRoutes(r chi.Router) {
	r.Route("/meal-plans", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// List handles GET /v1/meal-plans. Plans saved under an earlier paid tier
// stay readable after a downgrade.
func (h *MealPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	plans, err := h.mealPlans.ListMealPlans(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if plans == nil {
		plans = []*types.MealPlan{}
	}
	core.JSON(w, r, http.StatusOK, MealPlanListResponse{MealPlans: plans})
}

// Get handles GET /v1/meal-plans/{id}.
func (h *MealPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	plan, err := h.mealPlans.GetMealPlan(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, MealPlanResponse{MealPlan: plan})
}

// Create handles POST /v1/meal-plans. The tier must include meal plans.
func (h *MealPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var draft types.MealPlan
	if err := core.DecodeJSON(w, r, &draft); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(draft); err != nil {
		core.Error(w, r, err)
		return
	}
	if !h.requireMealPlanAccess(w, r, userID) {
		return
	}

	plan, err := h.mealPlans.CreateMealPlan(r.Context(), userID, draft)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, MealPlanResponse{MealPlan: plan})
}

// Update handles PUT /v1/meal-plans/{id}.
func (h *MealPlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var patch types.MealPlanPatch
	if err := core.DecodeJSON(w, r, &patch); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(patch); err != nil {
		core.Error(w, r, err)
		return
	}
	mealPlanID := chi.URLParam(r, "id")
	if _, err := h.mealPlans.GetMealPlan(r.Context(), userID, mealPlanID); err != nil {
		core.Error(w, r, err)
		return
	}
	if !h.requireMealPlanAccess(w, r, userID) {
		return
	}

	plan, err := h.mealPlans.UpdateMealPlan(r.Context(), userID, mealPlanID, patch)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, MealPlanResponse{MealPlan: plan})
}

// Delete handles DELETE /v1/meal-plans/{id}.
func (h *MealPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.mealPlans.DeleteMealPlan(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, SuccessResponse{Success: true})
}

func (h *MealPlanHandler) requireMealPlanAccess(w http.ResponseWriter, r *http.Request, userID string) bool {
	sub, err := h.subscriptions.GetSubscription(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return false
	}
	if !entitlement.CanAccessMealPlans(*sub) {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeQuotaFeatureUnavailable,
			"meal plans are not included in your plan", nil,
			map[string]any{"tier": string(sub.Tier)}))
		return false
	}
	return true
}
