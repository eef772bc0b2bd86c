// Package handlers contains the HTTP handlers of the recipebox API.
//
// Every handler reads the caller from the request context (populated by
// core.AuthMiddleware), delegates to a service and renders the result with
// core.JSON or core.Error. Content owned by another user is always reported
// as not found.
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

// --- Service Interfaces ---

// RecipeService is the recipe half of content.Service.
type RecipeService interface {
	ListRecipes(ctx context.Context, ownerID string) ([]*types.Recipe, error)
	GetRecipe(ctx context.Context, ownerID, id string) (*types.Recipe, error)
	CreateRecipe(ctx context.Context, ownerID string, draft types.Recipe) (*types.Recipe, error)
	UpdateRecipe(ctx context.Context, ownerID, id string, patch types.RecipePatch) (*types.Recipe, error)
	DeleteRecipe(ctx context.Context, ownerID, id string) error
	SetFeedback(ctx context.Context, ownerID, id string, fb types.Feedback) (*types.Recipe, error)
}

// SubscriptionReader loads the caller's subscription for feature gating.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, userID string) (*types.Subscription, error)
}

// --- Request/Response Models ---

// RecipeResponse wraps a single recipe.
type RecipeResponse struct {
	Recipe *types.Recipe `json:"recipe"`
}

// RecipeListResponse wraps the caller's recipes.
type RecipeListResponse struct {
	Recipes []*types.Recipe `json:"recipes"`
}

// FeedbackRequest is the body of POST /v1/recipes/{id}/feedback.
type FeedbackRequest struct {
	Feedback types.Feedback `json:"feedback"`
}

// FeedbackView is the reduced recipe returned by the feedback endpoints.
type FeedbackView struct {
	ID       string         `json:"id"`
	Feedback types.Feedback `json:"feedback"`
}

// FeedbackResponse wraps a FeedbackView.
type FeedbackResponse struct {
	Recipe FeedbackView `json:"recipe"`
}

// SuccessResponse acknowledges a delete.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// --- Handler ---

// RecipeHandler serves /v1/recipes.
type RecipeHandler struct {
	recipes       RecipeService
	subscriptions SubscriptionReader
	validator     *core.Validator
	logger        *slog.Logger
}

// NewRecipeHandler creates a RecipeHandler.
func NewRecipeHandler(recipes RecipeService, subs SubscriptionReader, v *core.Validator, l *slog.Logger) *RecipeHandler {
	if l == nil {
		l = slog.Default()
	}
	return &RecipeHandler{recipes: recipes, subscriptions: subs, validator: v, logger: l}
}

// RegisterRoutes mounts recipe routes.
func (h *RecipeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/feedback", h.GetFeedback)
			r.Post("/feedback", h.SetFeedback)
		})
	})
}

// List handles GET /v1/recipes.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	recipes, err := h.recipes.ListRecipes(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []*types.Recipe{}
	}
	core.JSON(w, r, http.StatusOK, RecipeListResponse{Recipes: recipes})
}

// Get handles GET /v1/recipes/{id}.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, RecipeResponse{Recipe: recipe})
}

// Create handles POST /v1/recipes. The server assigns id and "added".
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var draft types.Recipe
	if err := core.DecodeJSON(w, r, &draft); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(draft); err != nil {
		core.Error(w, r, err)
		return
	}

	recipe, err := h.recipes.CreateRecipe(r.Context(), userID, draft)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, RecipeResponse{Recipe: recipe})
}

// Update handles PUT /v1/recipes/{id}. Editing is a paid feature.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var patch types.RecipePatch
	if err := core.DecodeJSON(w, r, &patch); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(patch); err != nil {
		core.Error(w, r, err)
		return
	}

	// Ownership first: a foreign or missing id is not_found for every tier.
	recipeID := chi.URLParam(r, "id")
	if _, err := h.recipes.GetRecipe(r.Context(), userID, recipeID); err != nil {
		core.Error(w, r, err)
		return
	}

	sub, err := h.subscriptions.GetSubscription(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !entitlement.CanEditRecipe(*sub) {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeQuotaFeatureUnavailable,
			"recipe editing is not included in your plan", nil,
			map[string]any{"tier": string(sub.Tier)}))
		return
	}

	recipe, err := h.recipes.UpdateRecipe(r.Context(), userID, recipeID, patch)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, RecipeResponse{Recipe: recipe})
}

// Delete handles DELETE /v1/recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "recipe deleted", "user_id", userID, "recipe_id", chi.URLParam(r, "id"))
	core.JSON(w, r, http.StatusOK, SuccessResponse{Success: true})
}

// GetFeedback handles GET /v1/recipes/{id}/feedback.
func (h *RecipeHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, FeedbackResponse{Recipe: FeedbackView{ID: recipe.ID, Feedback: recipe.Feedback}})
}

// SetFeedback handles POST /v1/recipes/{id}/feedback. An empty value clears
// the signal; anything other than like/dislike is a 400.
func (h *RecipeHandler) SetFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	recipe, err := h.recipes.SetFeedback(r.Context(), userID, chi.URLParam(r, "id"), req.Feedback)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, FeedbackResponse{Recipe: FeedbackView{ID: recipe.ID, Feedback: recipe.Feedback}})
}
