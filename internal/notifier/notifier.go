package notifier

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// Notifier delivers one notification per call.
type Notifier interface {
	// Deliver shows the notification. A non-nil error is treated as
	// transient by the caller and retried within its backoff budget.
	Deliver(ctx context.Context, title, body string) error
	// IsGranted reports whether notification permission is currently held.
	IsGranted(ctx context.Context) bool
	// Request asks for permission and reports whether it was granted.
	Request(ctx context.Context) bool
}

// Desktop delivers notifications through the OS notification center.
type Desktop struct {
	// appName is shown as the notification source where the platform supports it.
	appName string
}

var _ Notifier = (*Desktop)(nil)

// NewDesktop creates a desktop notifier labelled with the given application name.
func NewDesktop(appName string) *Desktop {
	beeep.AppName = appName

	return &Desktop{appName: appName}
}

// Deliver shows a desktop notification.
func (d *Desktop) Deliver(_ context.Context, title, body string) error {
	if err := beeep.Notify(title, body, ""); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}

	return nil
}

// IsGranted always reports true: desktop notification centers on the
// supported platforms expose no runtime permission gate to query.
func (d *Desktop) IsGranted(context.Context) bool {
	return true
}

// Request is a no-op counterpart to IsGranted.
func (d *Desktop) Request(context.Context) bool {
	return true
}

// Log writes notifications to the daemon log instead of the OS notification
// center. Used headless and in environments without a notification service.
type Log struct{}

var _ Notifier = (*Log)(nil)

// NewLog creates a log-only notifier.
func NewLog() *Log {
	return &Log{}
}

// Deliver logs the notification at info level.
func (l *Log) Deliver(ctx context.Context, title, body string) error {
	logger.InfoKV(ctx, "Alarm notification", "title", title, "body", body)

	return nil
}

// IsGranted always reports true; the log is always writable.
func (l *Log) IsGranted(context.Context) bool {
	return true
}

// Request is a no-op counterpart to IsGranted.
func (l *Log) Request(context.Context) bool {
	return true
}
