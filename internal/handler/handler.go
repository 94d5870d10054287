// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/auth"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/ratelimit"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EventHandler holds the HTTP handlers for events.
type EventHandler struct {
	svc *service.EventService
	log *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// RegistrationHandler holds the HTTP handlers for registrations.
type RegistrationHandler struct {
	svc      *service.RegistrationService
	clientID func(*http.Request) string
	log      *zap.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler. clientID picks
// the rate-limit key out of each request.
func NewRegistrationHandler(svc *service.RegistrationService, clientID func(*http.Request) string, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, clientID: clientID, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, notFoundMsg string) {
	var rlErr *service.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		setRateLimitHeaders(w, rlErr.Decision)
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetTime.Unix(), 10))
	if !d.Allowed {
		secs := int(math.Ceil(d.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
	}
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var fields model.EventFields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.CreateEvent(r.Context(), fields)
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusCreated, model.MutationResponse{Success: true, ID: id})
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var fields model.EventFields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, model.MutationResponse{Success: true, ID: id})
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, model.MutationResponse{Success: true, ID: id})
}

// ClearEvents handles DELETE /api/events
func (h *EventHandler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, model.ClearResponse{Success: true, Deleted: n})
}

// ListEvents handles GET /api/events
// Admin callers see every event; everyone else sees published, non-archived ones.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), IsAdmin(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"), IsAdmin(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err, "Event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Registration handlers ────────────────────────────────────────────────────

// CreateRegistration handles POST /api/registrations
func (h *RegistrationHandler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var fields model.RegistrationFields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.CreateRegistration(r.Context(), fields, h.clientID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Registration not found")
		return
	}
	writeJSON(w, http.StatusCreated, model.MutationResponse{Success: true, ID: id})
}

// ListRegistrations handles GET /api/registrations?eventId=
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), r.URL.Query().Get("eventId"))
	if err != nil {
		writeServiceError(w, h.log, err, "Registration not found")
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ExportRegistrations handles GET /api/registrations/export?eventId=
func (h *RegistrationHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportRegistrationsCSV(r.Context(), r.URL.Query().Get("eventId"), &buf); err != nil {
		writeServiceError(w, h.log, err, "Registration not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
