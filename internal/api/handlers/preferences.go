package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recipebox/internal/content"
	"recipebox/internal/core"
	"recipebox/internal/types"
)

// PreferencesRepo persists one Preferences per user. Get returns nil, nil
// when nothing was saved.
type PreferencesRepo interface {
	Get(ctx context.Context, userID string) (*types.Preferences, error)
	Upsert(ctx context.Context, p *types.Preferences) error
}

// CalendarRepo persists one Calendar per user. Get returns an empty
// calendar for a user without one.
type CalendarRepo interface {
	Get(ctx context.Context, userID string) (*types.Calendar, error)
	Put(ctx context.Context, cal *types.Calendar) error
}

// PreferencesResponse wraps a user's preferences. A user who never saved any
// gets null.
type PreferencesResponse struct {
	Preferences *types.Preferences `json:"preferences"`
}

// CalendarRequest is the body of PUT /v1/calendar.
type CalendarRequest struct {
	Assignments map[string]string `json:"assignments"`
}

// CalendarResponse wraps a user's calendar.
type CalendarResponse struct {
	Calendar *types.Calendar `json:"calendar"`
}

// HouseholdHandler serves /v1/preferences and /v1/calendar.
type HouseholdHandler struct {
	preferences PreferencesRepo
	calendars   CalendarRepo
	validator   *core.Validator
	clock       types.Clock
	logger      *slog.Logger
}

// NewHouseholdHandler creates a HouseholdHandler. A nil clock means the real
// clock.
func NewHouseholdHandler(prefs PreferencesRepo, cals CalendarRepo, v *core.Validator, clock types.Clock, l *slog.Logger) *HouseholdHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &HouseholdHandler{preferences: prefs, calendars: cals, validator: v, clock: clock, logger: l}
}

// RegisterRoutes mounts preferences and calendar routes.
func (h *HouseholdHandler) RegisterRoutes(r chi.Router) {
	r.Get("/preferences", h.GetPreferences)
	r.Post("/preferences", h.SavePreferences)
	r.Get("/calendar", h.GetCalendar)
	r.Put("/calendar", h.PutCalendar)
}

// GetPreferences handles GET /v1/preferences.
func (h *HouseholdHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, PreferencesResponse{Preferences: prefs})
}

// SavePreferences handles POST /v1/preferences. familySize and skillLevel
// are required.
func (h *HouseholdHandler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var prefs types.Preferences
	if err := core.DecodeJSON(w, r, &prefs); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(prefs); err != nil {
		core.Error(w, r, err)
		return
	}

	prefs.UserID = userID
	prefs.UpdatedAt = h.clock.Now()
	if err := h.preferences.Upsert(r.Context(), &prefs); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, PreferencesResponse{Preferences: &prefs})
}

// GetCalendar handles GET /v1/calendar.
func (h *HouseholdHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}
	cal, err := h.calendars.Get(r.Context(), userID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, CalendarResponse{Calendar: cal})
}

// PutCalendar handles PUT /v1/calendar, replacing every assignment.
func (h *HouseholdHandler) PutCalendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := core.RequireUser(w, r)
	if !ok {
		return
	}

	var req CalendarRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := content.ValidateAssignments(req.Assignments); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Assignments == nil {
		req.Assignments = map[string]string{}
	}

	cal := &types.Calendar{UserID: userID, Assignments: req.Assignments, UpdatedAt: h.clock.Now()}
	if err := h.calendars.Put(r.Context(), cal); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, CalendarResponse{Calendar: cal})
}
