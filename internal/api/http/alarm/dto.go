package alarm

import (
	"time"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	service "github.com/oshokin/alarm-scheduler/internal/service/alarm"
)

// ErrorCode identifies an API error category.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInvalidSchedule  ErrorCode = "INVALID_SCHEDULE"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeAlreadyFired     ErrorCode = "ALREADY_FIRED"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// CreateAlarmRequest is the body of POST /api/v1/alarms.
type CreateAlarmRequest struct {
	// Title is the non-empty label shown in the notification.
	Title string `json:"title"`
	// ScheduledAt is the absolute target instant in RFC 3339.
	ScheduledAt time.Time `json:"scheduled_at"`
}

// ToggleAlarmRequest is the body of PATCH /api/v1/alarms/{id}.
type ToggleAlarmRequest struct {
	// IsActive is required; a pointer distinguishes false from absent.
	IsActive *bool `json:"is_active"`
}

// AlarmResponse is the JSON representation of one alarm.
type AlarmResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	FiredAt     *time.Time `json:"fired_at,omitempty"`
	Status      string     `json:"status"`
}

// ListAlarmsResponse is the body of GET /api/v1/alarms.
type ListAlarmsResponse struct {
	Alarms []AlarmResponse `json:"alarms"`
	Total  int             `json:"total"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// toAlarmResponse converts a domain alarm and its status into the wire shape.
func toAlarmResponse(alarm *domain.Alarm, status domain.Status) AlarmResponse {
	return AlarmResponse{
		ID:          alarm.ID,
		Title:       alarm.Title,
		ScheduledAt: alarm.ScheduledAt,
		IsActive:    alarm.IsActive,
		CreatedAt:   alarm.CreatedAt,
		FiredAt:     alarm.FiredAt,
		Status:      string(status),
	}
}

// toViewResponse converts a service view into the wire shape.
func toViewResponse(view service.View) AlarmResponse {
	return toAlarmResponse(view.Alarm, view.Status)
}
