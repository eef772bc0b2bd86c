package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipebox/internal/core"
	"recipebox/internal/generation"
	"recipebox/internal/types"
)

// GenerationFlow is implemented by generation.Flow.
type GenerationFlow interface {
	Recipe(ctx context.Context, acct generation.Account, req types.GenerateRequest) (*generation.RecipeResult, error)
	MealPlan(ctx context.Context, acct generation.Account, req types.GenerateRequest) (*generation.MealPlanResult, error)
	PreviewRecipe(ctx context.Context, req types.GenerateRequest) (*types.Recipe, error)
	PreviewMealPlan(ctx context.Context, req types.GenerateRequest) (*types.MealPlan, error)
}

// GenerateHandler serves /v1/generate. The metered endpoints run the full
// check, generate, count and save sequence for the caller; the preview
// endpoints only call the generator.
type GenerateHandler struct {
	flow        GenerationFlow
	account     func(userID string) generation.Account
	preferences PreferencesRepo
	validator   *core.Validator
	logger      *slog.Logger
}

// NewGenerateHandler creates a GenerateHandler. account binds the server
// services to one user; prefs may be nil.
func NewGenerateHandler(
	flow GenerationFlow,
	account func(userID string) generation.Account,
	prefs PreferencesRepo,
	v *core.Validator,
	l *slog.Logger,
) *GenerateHandler {
	if l == nil {
		l = slog.Default()
	}
	return &GenerateHandler{flow: flow, account: account, preferences: prefs, validator: v, logger: l}
}

// RegisterRoutes mounts the generation routes.
func (h *GenerateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/generate", func(r chi.Router) {
		r.Post("/recipe", h.GenerateRecipe)
		r.Post("/meal-plan", h.GenerateMealPlan)
		r.Post("/preview/recipe", h.PreviewRecipe)
		r.Post("/preview/meal-plan", h.PreviewMealPlan)
	})
}

// GenerateRecipe handles POST /v1/generate/recipe.
//
// Quota is checked before the generator is called; a refused request costs
// nothing and a failed generation is not counted.
func (h *GenerateHandler) GenerateRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	h.attachPreferences(r.Context(), userID, &req)

	res, err := h.flow.Recipe(r.Context(), h.account(userID), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "recipe generated",
		"user_id", userID,
		"recipe_id", res.Recipe.ID,
		"remaining", res.Remaining,
	)
	core.JSON(w, r, http.StatusCreated, res)
}

// GenerateMealPlan handles POST /v1/generate/meal-plan.
func (h *GenerateHandler) GenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Days == 0 {
		req.Days = 7
	}
	h.attachPreferences(r.Context(), userID, &req)

	res, err := h.flow.MealPlan(r.Context(), h.account(userID), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "meal plan generated",
		"user_id", userID,
		"meal_plan_id", res.MealPlan.ID,
		"remaining", res.Remaining,
	)
	core.JSON(w, r, http.StatusCreated, res)
}

// PreviewRecipe handles POST /v1/generate/preview/recipe. Nothing is
// checked, counted or stored.
func (h *GenerateHandler) PreviewRecipe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	recipe, err := h.flow.PreviewRecipe(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, RecipeResponse{Recipe: recipe})
}

// PreviewMealPlan handles POST /v1/generate/preview/meal-plan.
func (h *GenerateHandler) PreviewMealPlan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.Days == 0 {
		req.Days = 7
	}
	plan, err := h.flow.PreviewMealPlan(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, MealPlanResponse{MealPlan: plan})
}

func (h *GenerateHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (types.GenerateRequest, bool) {
	var req types.GenerateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return req, false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return req, false
	}
	return req, true
}

// attachPreferences fills in the caller's saved preferences when the request
// carries none. A lookup failure only costs personalization.
func (h *GenerateHandler) attachPreferences(ctx context.Context, userID string, req *types.GenerateRequest) {
	if req.Preferences != nil || h.preferences == nil {
		return
	}
	prefs, err := h.preferences.Get(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "preferences lookup failed", "user_id", userID, "error", err)
		return
	}
	req.Preferences = prefs
}
