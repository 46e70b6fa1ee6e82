package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	service "github.com/oshokin/alarm-scheduler/internal/service/alarm"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Create(ctx context.Context, title string, scheduledAt time.Time) (service.View, error)
	List(ctx context.Context) ([]service.View, error)
	Get(ctx context.Context, id int64) (service.View, error)
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64, isActive bool) (service.View, error)
}

// Handler serves the alarm HTTP API.
type Handler struct {
	// service provides the business logic for alarm operations.
	service Service
}

// NewHandler wires the provided service implementation into an HTTP handler.
func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Routes returns the router for mounting under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/alarms", func(r chi.Router) {
		r.Post("/", h.createAlarm)
		r.Get("/", h.listAlarms)
		r.Get("/{id}", h.getAlarm)
		r.Delete("/{id}", h.deleteAlarm)
		r.Patch("/{id}", h.toggleAlarm)
	})

	return r
}

// createAlarm handles POST /alarms.
func (h *Handler) createAlarm(w http.ResponseWriter, r *http.Request) {
	var req CreateAlarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "malformed request body")

		return
	}

	if req.ScheduledAt.IsZero() {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "scheduled_at is required")

		return
	}

	created, err := h.service.Create(r.Context(), req.Title, req.ScheduledAt)
	if err != nil {
		writeDomainError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusCreated, toViewResponse(created))
}

// listAlarms handles GET /alarms.
func (h *Handler) listAlarms(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)

		return
	}

	alarms := make([]AlarmResponse, 0, len(views))
	for _, view := range views {
		alarms = append(alarms, toViewResponse(view))
	}

	writeJSON(w, r, http.StatusOK, ListAlarmsResponse{
		Alarms: alarms,
		Total:  len(alarms),
	})
}

// getAlarm handles GET /alarms/{id}.
func (h *Handler) getAlarm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, toViewResponse(view))
}

// deleteAlarm handles DELETE /alarms/{id}.
func (h *Handler) deleteAlarm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toggleAlarm handles PATCH /alarms/{id}.
func (h *Handler) toggleAlarm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ToggleAlarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "malformed request body")

		return
	}

	if req.IsActive == nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "is_active is required")

		return
	}

	view, err := h.service.Toggle(r.Context(), id, *req.IsActive)
	if err != nil {
		writeDomainError(w, r, err)

		return
	}

	writeJSON(w, r, http.StatusOK, toViewResponse(view))
}

// parseID extracts the numeric id path parameter, replying 400 on garbage.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid alarm id")

		return 0, false
	}

	return id, true
}

// writeDomainError maps domain errors to HTTP statuses and typed codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, "alarm not found")
	case errors.Is(err, domain.ErrEmptyTitle):
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidSchedule):
		writeError(w, r, http.StatusBadRequest, CodeInvalidSchedule, "scheduled instant is not acceptable")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, CodePermissionDenied, "notification permission denied")
	case errors.Is(err, domain.ErrAlreadyFired):
		writeError(w, r, http.StatusConflict, CodeAlreadyFired, "alarm already fired")
	default:
		logger.ErrorKV(r.Context(), "Request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, CodeInternalError, "internal error")
	}
}

// writeError sends a typed error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	writeJSON(w, r, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON sends a JSON response, logging encoding failures instead of
// attempting a second write on an already started reply.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.ErrorKV(r.Context(), "Failed to encode response", "error", err)
	}
}
