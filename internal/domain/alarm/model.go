package alarm

import (
	"errors"
	"time"
)

// Common domain errors shared by the repository, service and transport layers.
var (
	// ErrNotFound is returned when an operation references an unknown or deleted alarm.
	ErrNotFound = errors.New("alarm not found")
	// ErrInvalidSchedule is returned when the target instant is malformed or
	// rejected by the configured overdue policy.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrPermissionDenied is returned when notification permission is missing
	// and could not be obtained.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrAlreadyFired is returned when a mutation targets an alarm that has
	// already reached its terminal fired state.
	ErrAlreadyFired = errors.New("alarm already fired")
	// ErrEmptyTitle is returned when an alarm is created without a title.
	ErrEmptyTitle = errors.New("alarm title must not be empty")
)

// Status is the user-visible lifecycle state of an alarm, derived from the
// persisted fields plus the in-memory delivery outcome of the current process.
type Status string

const (
	// StatusPending means the alarm is active and has not fired yet.
	StatusPending Status = "pending"
	// StatusFired means the alarm delivered its notification; terminal.
	StatusFired Status = "fired"
	// StatusCancelled means the alarm was deactivated before firing.
	StatusCancelled Status = "cancelled"
	// StatusDeliveryFailed means the last activation exhausted its delivery
	// retries. The alarm stays active and unfired so a restart or a manual
	// toggle retries it.
	StatusDeliveryFailed Status = "delivery_failed"
)

// Alarm is a persisted request to deliver one notification at a specific instant.
type Alarm struct {
	// ID is assigned by the store on creation and immutable thereafter.
	ID int64
	// Title is the non-empty label shown in the notification.
	Title string
	// ScheduledAt is the absolute target instant, normalized to UTC.
	ScheduledAt time.Time
	// IsActive reports whether the engine should hold a pending wait for the alarm.
	IsActive bool
	// CreatedAt is set once at creation.
	CreatedAt time.Time
	// FiredAt is nil until the alarm fires and is set exactly once.
	FiredAt *time.Time
}

// Fired reports whether the alarm reached its terminal fired state.
func (a *Alarm) Fired() bool {
	return a.FiredAt != nil
}

// Status derives the lifecycle state from the persisted fields.
// deliveryFailed is the in-memory outcome of the current activation; it is
// only meaningful while the alarm is active and unfired.
func (a *Alarm) Status(deliveryFailed bool) Status {
	switch {
	case a.Fired():
		return StatusFired
	case !a.IsActive:
		return StatusCancelled
	case deliveryFailed:
		return StatusDeliveryFailed
	default:
		return StatusPending
	}
}

// Clone returns a copy of the alarm to avoid leaking internal references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a
	if a.FiredAt != nil {
		firedAt := *a.FiredAt
		cloned.FiredAt = &firedAt
	}

	return &cloned
}
