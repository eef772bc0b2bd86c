package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipebox/internal/external"
	"recipebox/internal/persistence"
	"recipebox/internal/types"
)

var bob = persistence.Identity{UserID: "bob", Token: "sess_bob"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	base := external.NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "api-test",
		external.BreakerSettings{ConsecutiveFailures: 10, OpenTimeout: time.Minute}, "recipebox-test")
	return New(base, server.URL+"/", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_ListRecipesSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]any{
			"recipes": []map[string]any{{"id": "r1", "title": "Dal"}},
		})
	})

	recipes, err := c.ListRecipes(context.Background(), bob)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, "Dal", recipes[0].Title)
	assert.Equal(t, "Bearer sess_bob", gotAuth)
	assert.Equal(t, "/v1/recipes", gotPath)
}

func TestClient_IncrementUsageBody(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		writeJSON(w, http.StatusOK, map[string]any{
			"usage": map[string]any{"currentMonth": "2024-04", "mealPlansGenerated": 3},
		})
	})

	usage, err := c.IncrementUsage(context.Background(), bob, types.UsageMealPlan)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"type": "mealPlan"}, got)
	assert.Equal(t, 3, usage.MealPlansGenerated)
}

func TestClient_ClientErrorKeepsServerCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "not_found_recipe", "message": "recipe not found"},
		})
	})

	_, err := c.GetRecipe(context.Background(), bob, "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeNotFoundRecipe, types.ErrorCodeOf(err))
}

func TestClient_UnstructuredUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.GetSubscription(context.Background(), bob)
	assert.Equal(t, types.ErrCodeAuthTokenInvalid, types.ErrorCodeOf(err))
}

func TestClient_ServerErrorRecoversCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": map[string]any{"code": "storage_unavailable", "message": "database unavailable"},
		})
	})

	_, err := c.IncrementUsage(context.Background(), bob, types.UsageRecipe)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeStorageUnavailable, types.ErrorCodeOf(err))
}

func TestClient_ServerErrorWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := c.GetUsage(context.Background(), bob)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, types.ErrorCodeOf(err))
}

func TestClient_UnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	base := external.NewBaseClient(&http.Client{Timeout: time.Second}, "api-down",
		external.DefaultBreakerSettings(), "recipebox-test")
	c := New(base, url, nil)

	_, err := c.GetUsage(context.Background(), bob)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, types.ErrorCodeOf(err))
}

func TestClient_PreviewIsAnonymous(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq types.GenerateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		writeJSON(w, http.StatusOK, map[string]any{
			"mealPlan": map[string]any{"title": "Week of soups", "days": 5},
		})
	})

	mp, err := c.GenerateMealPlan(context.Background(), types.GenerateRequest{Situation: "cold week", FamilySize: 2, Days: 5})
	require.NoError(t, err)
	assert.Equal(t, "Week of soups", mp.Title)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "/v1/generate/preview/meal-plan", gotPath)
	assert.Equal(t, "cold week", gotReq.Situation)
}

func TestClient_ItemPathEscapesID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	require.NoError(t, c.DeleteMealPlan(context.Background(), bob, "a/b"))
	assert.Equal(t, "/v1/meal-plans/a%2Fb", gotPath)
}
