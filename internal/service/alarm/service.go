package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/notifier"
	repository "github.com/oshokin/alarm-scheduler/internal/repository/alarm"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
	"github.com/oshokin/alarm-scheduler/internal/telemetry"
)

// View is an alarm together with its derived user-visible status.
type View struct {
	*domain.Alarm

	// Status folds the persisted fields and the in-memory delivery outcome
	// of the current process into one value.
	Status domain.Status
}

// Config assembles a Service.
type Config struct {
	// Repository persists alarm rows. Required.
	Repository repository.Repository
	// Notifier delivers notifications and answers permission checks. Required.
	Notifier notifier.Notifier
	// Clock overrides the wall clock, mainly for tests. Nil means real time.
	Clock scheduler.Clock
	// OverduePolicy controls registration of already-due instants.
	OverduePolicy scheduler.OverduePolicy
	// MaxAttempts bounds delivery retries per activation.
	MaxAttempts int
	// RetryBackoff is the base delay between delivery attempts.
	RetryBackoff time.Duration
	// Metrics is optional prometheus instrumentation.
	Metrics *telemetry.Metrics
}

// Service encapsulates the alarm business logic and keeps the persisted rows
// and the in-memory schedule consistent.
type Service struct {
	// repo handles durable storage of alarm rows.
	repo repository.Repository
	// sched holds one pending wait per active alarm.
	sched *scheduler.Scheduler
	// notifications answers permission checks before any registration.
	notifications notifier.Notifier
	// now supplies the clock shared with the scheduler.
	now func() time.Time
	// overduePolicy mirrors the scheduler's policy for pre-persist validation.
	overduePolicy scheduler.OverduePolicy
	// metrics is optional prometheus instrumentation.
	metrics *telemetry.Metrics

	// mu protects deliveryFailed.
	mu sync.Mutex
	// deliveryFailed records alarms whose last activation exhausted its
	// retry budget, keyed by id. Cleared on re-activation and deletion.
	deliveryFailed map[int64]error
}

// NewService creates a Service and its scheduler. The context scopes logging
// of fire events and should stay valid for the service's lifetime.
func NewService(ctx context.Context, cfg Config) *Service {
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock.Now
	}

	s := &Service{
		repo:           cfg.Repository,
		notifications:  cfg.Notifier,
		now:            now,
		overduePolicy:  cfg.OverduePolicy,
		metrics:        cfg.Metrics,
		deliveryFailed: make(map[int64]error),
	}

	s.sched = scheduler.New(ctx, scheduler.Config{
		Notifier: cfg.Notifier,
		Hooks: scheduler.Hooks{
			MarkFired:      s.markFired,
			DeliveryFailed: s.recordDeliveryFailure,
		},
		Clock:         cfg.Clock,
		OverduePolicy: cfg.OverduePolicy,
		MaxAttempts:   cfg.MaxAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		Metrics:       cfg.Metrics,
	})

	return s
}

// Create persists a new alarm, registers its wait and returns the stored
// state with its derived status.
func (s *Service) Create(ctx context.Context, title string, scheduledAt time.Time) (View, error) {
	if title == "" {
		return View{}, domain.ErrEmptyTitle
	}

	// Validate the instant before persisting so a rejected alarm leaves no row.
	if s.overduePolicy == scheduler.Reject && !scheduledAt.After(s.now()) {
		return View{}, domain.ErrInvalidSchedule
	}

	if err := s.ensurePermission(ctx); err != nil {
		return View{}, err
	}

	alarm, err := s.repo.Create(ctx, title, scheduledAt)
	if err != nil {
		return View{}, fmt.Errorf("persist alarm: %w", err)
	}

	if err = s.sched.Register(ctx, alarm.ID, alarm.Title, alarm.ScheduledAt); err != nil {
		// Keep the store consistent with the schedule we failed to build.
		if deleteErr := s.repo.Delete(ctx, alarm.ID); deleteErr != nil {
			logger.ErrorKV(ctx, "Failed to roll back unregistered alarm",
				"alarm_id", alarm.ID, "error", deleteErr)
		}

		return View{}, fmt.Errorf("register alarm: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AlarmsCreated.Inc()
	}

	logger.InfoKV(ctx, "Alarm created",
		"alarm_id", alarm.ID, "title", alarm.Title, "scheduled_at", alarm.ScheduledAt)

	// Re-read the row: an overdue instant may already have fired, and the
	// caller's status must reflect what the store says.
	if stored, getErr := s.repo.GetByID(ctx, alarm.ID); getErr == nil {
		alarm = stored
	}

	return s.view(alarm), nil
}

// List returns every stored alarm with its derived status.
func (s *Service) List(ctx context.Context) ([]View, error) {
	alarms, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	views := make([]View, 0, len(alarms))
	for _, alarm := range alarms {
		views = append(views, s.view(alarm))
	}

	return views, nil
}

// Get returns a single alarm with its derived status.
func (s *Service) Get(ctx context.Context, id int64) (View, error) {
	alarm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}

	return s.view(alarm), nil
}

// Delete removes the alarm row and any pending wait. A wait already
// delivering runs to completion; its mark-fired write then hits NotFound,
// which the scheduler absorbs, so no row reappears after deletion.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.sched.Cancel(id)
	s.clearDeliveryFailure(id)

	logger.InfoKV(ctx, "Alarm deleted", "alarm_id", id)

	return nil
}

// Toggle updates is_active and keeps the schedule consistent: activation
// registers a fresh wait (a new activation, clearing any previous delivery
// failure), deactivation cancels the pending one.
func (s *Service) Toggle(ctx context.Context, id int64, isActive bool) (View, error) {
	alarm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return View{}, err
	}

	if alarm.Fired() {
		return View{}, domain.ErrAlreadyFired
	}

	if isActive {
		if err = s.ensurePermission(ctx); err != nil {
			return View{}, err
		}
	}

	if err = s.repo.UpdateActive(ctx, id, isActive); err != nil {
		return View{}, err
	}

	alarm.IsActive = isActive

	if isActive {
		s.clearDeliveryFailure(id)

		if err = s.sched.Register(ctx, alarm.ID, alarm.Title, alarm.ScheduledAt); err != nil {
			return View{}, fmt.Errorf("register alarm: %w", err)
		}
	} else {
		s.sched.Cancel(id)
	}

	logger.InfoKV(ctx, "Alarm toggled", "alarm_id", id, "is_active", isActive)

	return s.view(alarm), nil
}

// Recover rebuilds the in-memory schedule from persisted truth. Alarms with
// fired_at set or is_active=false are skipped; everything else is registered
// with the configured overdue policy. The call is idempotent because
// Register replaces rather than duplicates.
func (s *Service) Recover(ctx context.Context) error {
	alarms, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list alarms for recovery: %w", err)
	}

	var recovered, skipped int

	for _, alarm := range alarms {
		if !alarm.IsActive || alarm.Fired() {
			continue
		}

		if err = s.sched.Register(ctx, alarm.ID, alarm.Title, alarm.ScheduledAt); err != nil {
			if errors.Is(err, domain.ErrInvalidSchedule) {
				// Overdue under the reject policy: leave the row for the
				// user to reschedule instead of aborting recovery.
				logger.WarnKV(ctx, "Skipping overdue alarm during recovery",
					"alarm_id", alarm.ID, "scheduled_at", alarm.ScheduledAt)

				skipped++

				continue
			}

			return fmt.Errorf("register alarm %d: %w", alarm.ID, err)
		}

		recovered++
	}

	logger.InfoKV(ctx, "Recovery completed", "recovered", recovered, "skipped", skipped)

	return nil
}

// PendingWaits reports the number of in-memory waits currently held.
func (s *Service) PendingWaits() int {
	return s.sched.PendingCount()
}

// Shutdown tears down the schedule and waits for in-flight deliveries.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.sched.Shutdown(ctx)
}

// markFired is the scheduler's success hook and the only write path for fired_at.
func (s *Service) markFired(ctx context.Context, id int64, firedAt time.Time) error {
	return s.repo.UpdateFired(ctx, id, firedAt)
}

// recordDeliveryFailure is the scheduler's exhaustion hook; the failure is
// surfaced through the alarm's status in List and Get.
func (s *Service) recordDeliveryFailure(_ context.Context, id int64, _ int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryFailed[id] = err
}

// clearDeliveryFailure forgets a recorded failure, starting a fresh activation.
func (s *Service) clearDeliveryFailure(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.deliveryFailed, id)
}

// view derives the user-visible status for one alarm.
func (s *Service) view(alarm *domain.Alarm) View {
	s.mu.Lock()
	_, failed := s.deliveryFailed[alarm.ID]
	s.mu.Unlock()

	return View{
		Alarm:  alarm,
		Status: alarm.Status(failed),
	}
}

// ensurePermission checks notification permission before a registration is
// accepted, requesting it once if not yet granted.
func (s *Service) ensurePermission(ctx context.Context) error {
	if s.notifications.IsGranted(ctx) {
		return nil
	}

	if s.notifications.Request(ctx) {
		return nil
	}

	return domain.ErrPermissionDenied
}
