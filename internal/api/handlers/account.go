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

// SubscriptionService is implemented by subscription.Service.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, userID string) (*types.Subscription, error)
	UpdateSubscription(ctx context.Context, userID string, next types.Subscription) (*types.Subscription, error)
}

// UsageService is implemented by ledger.Service.
type UsageService interface {
	GetUsage(ctx context.Context, userID string) (*types.UsageStats, error)
	Increment(ctx context.Context, userID string, kind types.UsageKind) (*types.UsageStats, error)
}

// SubscriptionResponse wraps a subscription.
type SubscriptionResponse struct {
	Subscription *types.Subscription `json:"subscription"`
}

// UsageRequest is the body of PUT /v1/usage.
type UsageRequest struct {
	Type types.UsageKind `json:"type"`
}

// UsageResponse is returned by GET /v1/usage.
type UsageResponse struct {
	Usage     *types.UsageStats           `json:"usage"`
	Limits    types.Limits                `json:"limits"`
	Remaining entitlement.RemainingCounts `json:"remaining"`
}

// UsageIncrementResponse is returned by PUT /v1/usage.
type UsageIncrementResponse struct {
	Usage *types.UsageStats `json:"usage"`
}

// AccountHandler serves the subscription record and the usage ledger.
type AccountHandler struct {
	subscriptions SubscriptionService
	usage         UsageService
	logger        *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(subs SubscriptionService, usage UsageService, l *slog.Logger) *AccountHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AccountHandler{subscriptions: subs, usage: usage, logger: l}
}

// RegisterRoutes mounts /subscription and /usage.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/subscription", h.GetSubscription)
	r.Put("/subscription", h.UpdateSubscription)
	r.Get("/usage", h.GetUsage)
	r.Put("/usage", h.IncrementUsage)
}

// GetSubscription handles GET /v1/subscription. First contact creates the
// free default.
func (h *AccountHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	sub, err := h.subscriptions.GetSubscription(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, SubscriptionResponse{Subscription: sub})
}

// UpdateSubscription handles PUT /v1/subscription: a full replace with no
// billing behind it. The current month's usage is kept.
func (h *AccountHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var next types.Subscription
	if err := core.DecodeJSON(w, r, &next); err != nil {
		core.Error(w, r, err)
		return
	}
	if next.Tier == "" {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"tier is required", nil, map[string]any{"field": "tier"}))
		return
	}

	sub, err := h.subscriptions.UpdateSubscription(r.Context(), userID, next)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, SubscriptionResponse{Subscription: sub})
}

// GetUsage handles GET /v1/usage and includes the entitlement summary.
func (h *AccountHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	usage, err := h.usage.GetUsage(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	sub, err := h.subscriptions.GetSubscription(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	summary := entitlement.Summarize(*sub, *usage)
	core.JSON(w, r, http.StatusOK, UsageResponse{
		Usage:     usage,
		Limits:    summary.Limits,
		Remaining: summary.Remaining,
	})
}

// IncrementUsage handles PUT /v1/usage. It is the raw ledger increment used
// by device clients after they generated content themselves; quota is the
// caller's check, as with ledger.Service.
func (h *AccountHandler) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var req UsageRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	usage, err := h.usage.Increment(r.Context(), userID, req.Type)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, UsageIncrementResponse{Usage: usage})
}
