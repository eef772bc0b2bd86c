package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"recipebox/internal/types"
)

// defaultGeneratorBaseURL targets an OpenAI-compatible chat completions API.
const defaultGeneratorBaseURL = "https://api.openai.com"

// maxGeneratorResponse bounds how much of a completion body is read.
const maxGeneratorResponse = 2 << 20

// GeneratorConfig configures LLMClient.
type GeneratorConfig struct {
	APIKey    types.SecretString
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *slog.Logger
}

// LLMClient is the Content Generation Gateway. It sends a structured request
// to a chat-completions endpoint that is asked to answer in JSON, and turns
// the answer into a recipe or meal plan draft. Failures are classified as
// credentials, overloaded, model/config, malformed output or unavailable.
type LLMClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	model   string
	tokens  int
	logger  *slog.Logger
}

// NewLLMClient creates a gateway client.
func NewLLMClient(httpClient *http.Client, cfg GeneratorConfig) *LLMClient {
	base := NewBaseClient(httpClient, "generator", DefaultBreakerSettings(), "recipebox/1.0")
	return NewLLMClientWithBase(base, cfg)
}

// NewLLMClientWithBase creates a gateway client over a pre-built BaseClient.
func NewLLMClientWithBase(base *BaseClient, cfg GeneratorConfig) *LLMClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeneratorBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tokens := cfg.MaxTokens
	if tokens <= 0 {
		tokens = 4096
	}
	return &LLMClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		tokens:  tokens,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateRecipe asks the model for one recipe.
func (c *LLMClient) GenerateRecipe(ctx context.Context, req types.GenerateRequest) (*types.Recipe, error) {
	payload, err := c.complete(ctx, recipeInstructions, req)
	if err != nil {
		return nil, err
	}
	return DecodeRecipe(payload)
}

// GenerateMealPlan asks the model for a multi-day plan.
func (c *LLMClient) GenerateMealPlan(ctx context.Context, req types.GenerateRequest) (*types.MealPlan, error) {
	if req.Days == 0 {
		req.Days = 7
	}
	payload, err := c.complete(ctx, mealPlanInstructions, req)
	if err != nil {
		return nil, err
	}
	return DecodeMealPlan(payload)
}

const recipeInstructions = `You are a home cooking assistant. Reply with a single JSON object with keys:
title, description, prepTime, cookTime, servings (integer), tags (array of strings),
ingredients (array of {item, amount}), instructions (array of strings), tips (array of strings).`

const mealPlanInstructions = `You are a meal planning assistant. Reply with a single JSON object with keys:
title, description, days (integer), servings (integer),
meals (array of {day, breakfast, lunch, dinner}), shoppingList (array of strings), prepNotes (array of strings).`

func (c *LLMClient) complete(ctx context.Context, instructions string, req types.GenerateRequest) ([]byte, error) {
	if c.apiKey.Unmask() == "" {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeneratorCredentials,
			"content generator API key is not configured", nil)
	}
	if c.model == "" {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeneratorConfig,
			"content generator model is not configured", nil)
	}

	userPrompt, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode generate request", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: instructions},
			{Role: "user", Content: string(userPrompt)},
		},
		MaxTokens:      c.tokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode completion request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeneratorConfig, "invalid generator base URL", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	start := time.Now()
	resp, err := c.base.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratorResponse))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to read generator response", err)
	}

	if resp.StatusCode >= 300 {
		return nil, c.classifyStatus(ctx, resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeneratorMalformed,
			"generator returned an unreadable completion", err)
	}
	content := stripCodeFence(parsed.Choices[0].Message.Content)

	c.logger.InfoContext(ctx, "generator completion received",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", parsed.Choices[0].FinishReason,
	)
	return []byte(content), nil
}

func (c *LLMClient) classifyTransport(ctx context.Context, err error) error {
	switch StatusOf(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		c.logger.WarnContext(ctx, "generator overloaded", "error", err)
		return types.NewAppError(types.ErrCodeUpstreamGeneratorOverloaded,
			"the recipe generator is busy, please try again shortly", err)
	}
	if types.ErrorCodeOf(err) == types.ErrCodeUpstreamUnavailable && StatusOf(err) == 0 {
		// Breaker open or network failure.
		return types.NewAppError(types.ErrCodeUpstreamGeneratorOverloaded,
			"the recipe generator is unavailable, please try again shortly", err)
	}
	return err
}

func (c *LLMClient) classifyStatus(ctx context.Context, status int, body []byte) error {
	var apiErr chatError
	_ = json.Unmarshal(body, &apiErr)
	details := map[string]any{"status": status}
	if apiErr.Error.Code != "" {
		details["upstream_code"] = apiErr.Error.Code
	}

	c.logger.WarnContext(ctx, "generator rejected request",
		"status", status,
		"upstream_type", apiErr.Error.Type,
		"upstream_message", apiErr.Error.Message,
	)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamGeneratorCredentials,
			"the recipe generator rejected our credentials", nil, details)
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamGeneratorConfig,
			"the recipe generator model or request is misconfigured", nil, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("the recipe generator returned %d", status), nil, details)
	}
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
