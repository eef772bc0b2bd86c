package apiclient

import (
	"context"
	"net/http"

	"recipebox/internal/persistence"
	"recipebox/internal/types"
)

type recipesBody struct {
	Recipes []*types.Recipe `json:"recipes"`
}

type recipeBody struct {
	Recipe *types.Recipe `json:"recipe"`
}

type mealPlansBody struct {
	MealPlans []*types.MealPlan `json:"mealPlans"`
}

type mealPlanBody struct {
	MealPlan *types.MealPlan `json:"mealPlan"`
}

type usageBody struct {
	Usage *types.UsageStats `json:"usage"`
}

type subscriptionBody struct {
	Subscription *types.Subscription `json:"subscription"`
}

type calendarBody struct {
	Calendar *types.Calendar `json:"calendar"`
}

func (c *Client) ListRecipes(ctx context.Context, id persistence.Identity) ([]*types.Recipe, error) {
	var out recipesBody
	if err := c.call(ctx, id.Token, http.MethodGet, "/v1/recipes", nil, &out); err != nil {
		return nil, err
	}
	return out.Recipes, nil
}

func (c *Client) GetRecipe(ctx context.Context, id persistence.Identity, recipeID string) (*types.Recipe, error) {
	var out recipeBody
	if err := c.call(ctx, id.Token, http.MethodGet, itemPath("recipes", recipeID), nil, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

func (c *Client) CreateRecipe(ctx context.Context, id persistence.Identity, draft types.Recipe) (*types.Recipe, error) {
	var out recipeBody
	if err := c.call(ctx, id.Token, http.MethodPost, "/v1/recipes", draft, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

func (c *Client) UpdateRecipe(ctx context.Context, id persistence.Identity, recipeID string, patch types.RecipePatch) (*types.Recipe, error) {
	var out recipeBody
	if err := c.call(ctx, id.Token, http.MethodPut, itemPath("recipes", recipeID), patch, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

func (c *Client) DeleteRecipe(ctx context.Context, id persistence.Identity, recipeID string) error {
	return c.call(ctx, id.Token, http.MethodDelete, itemPath("recipes", recipeID), nil, nil)
}

// SetRecipeFeedback returns a recipe carrying only the id and feedback, as
// the feedback endpoint does.
func (c *Client) SetRecipeFeedback(ctx context.Context, id persistence.Identity, recipeID string, fb types.Feedback) (*types.Recipe, error) {
	var out recipeBody
	in := map[string]types.Feedback{"feedback": fb}
	if err := c.call(ctx, id.Token, http.MethodPost, itemPath("recipes", recipeID)+"/feedback", in, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

func (c *Client) ListMealPlans(ctx context.Context, id persistence.Identity) ([]*types.MealPlan, error) {
	var out mealPlansBody
	if err := c.call(ctx, id.Token, http.MethodGet, "/v1/meal-plans", nil, &out); err != nil {
		return nil, err
	}
	return out.MealPlans, nil
}

func (c *Client) GetMealPlan(ctx context.Context, id persistence.Identity, mealPlanID string) (*types.MealPlan, error) {
	var out mealPlanBody
	if err := c.call(ctx, id.Token, http.MethodGet, itemPath("meal-plans", mealPlanID), nil, &out); err != nil {
		return nil, err
	}
	return out.MealPlan, nil
}

func (c *Client) CreateMealPlan(ctx context.Context, id persistence.Identity, draft types.MealPlan) (*types.MealPlan, error) {
	var out mealPlanBody
	if err := c.call(ctx, id.Token, http.MethodPost, "/v1/meal-plans", draft, &out); err != nil {
		return nil, err
	}
	return out.MealPlan, nil
}

func (c *Client) UpdateMealPlan(ctx context.Context, id persistence.Identity, mealPlanID string, patch types.MealPlanPatch) (*types.MealPlan, error) {
	var out mealPlanBody
	if err := c.call(ctx, id.Token, http.MethodPut, itemPath("meal-plans", mealPlanID), patch, &out); err != nil {
		return nil, err
	}
	return out.MealPlan, nil
}

func (c *Client) DeleteMealPlan(ctx context.Context, id persistence.Identity, mealPlanID string) error {
	return c.call(ctx, id.Token, http.MethodDelete, itemPath("meal-plans", mealPlanID), nil, nil)
}

func (c *Client) GetUsage(ctx context.Context, id persistence.Identity) (*types.UsageStats, error) {
	var out usageBody
	if err := c.call(ctx, id.Token, http.MethodGet, "/v1/usage", nil, &out); err != nil {
		return nil, err
	}
	return out.Usage, nil
}

func (c *Client) IncrementUsage(ctx context.Context, id persistence.Identity, kind types.UsageKind) (*types.UsageStats, error) {
	var out usageBody
	in := map[string]types.UsageKind{"type": kind}
	if err := c.call(ctx, id.Token, http.MethodPut, "/v1/usage", in, &out); err != nil {
		return nil, err
	}
	return out.Usage, nil
}

func (c *Client) GetSubscription(ctx context.Context, id persistence.Identity) (*types.Subscription, error) {
	var out subscriptionBody
	if err := c.call(ctx, id.Token, http.MethodGet, "/v1/subscription", nil, &out); err != nil {
		return nil, err
	}
	return out.Subscription, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, id persistence.Identity, sub types.Subscription) (*types.Subscription, error) {
	var out subscriptionBody
	if err := c.call(ctx, id.Token, http.MethodPut, "/v1/subscription", sub, &out); err != nil {
		return nil, err
	}
	return out.Subscription, nil
}

func (c *Client) GetCalendar(ctx context.Context, id persistence.Identity) (*types.Calendar, error) {
	var out calendarBody
	if err := c.call(ctx, id.Token, http.MethodGet, "/v1/calendar", nil, &out); err != nil {
		return nil, err
	}
	return out.Calendar, nil
}

func (c *Client) PutCalendar(ctx context.Context, id persistence.Identity, assignments map[string]string) (*types.Calendar, error) {
	var out calendarBody
	in := map[string]map[string]string{"assignments": assignments}
	if err := c.call(ctx, id.Token, http.MethodPut, "/v1/calendar", in, &out); err != nil {
		return nil, err
	}
	return out.Calendar, nil
}

// GenerateRecipe calls the unmetered preview endpoint.
func (c *Client) GenerateRecipe(ctx context.Context, req types.GenerateRequest) (*types.Recipe, error) {
	var out recipeBody
	if err := c.call(ctx, "", http.MethodPost, "/v1/generate/preview/recipe", req, &out); err != nil {
		return nil, err
	}
	return out.Recipe, nil
}

// GenerateMealPlan calls the unmetered preview endpoint.
func (c *Client) GenerateMealPlan(ctx context.Context, req types.GenerateRequest) (*types.MealPlan, error) {
	var out mealPlanBody
	if err := c.call(ctx, "", http.MethodPost, "/v1/generate/preview/meal-plan", req, &out); err != nil {
		return nil, err
	}
	return out.MealPlan, nil
}
