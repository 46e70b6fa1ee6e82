package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
	"github.com/oshokin/alarm-scheduler/internal/logger"
	"github.com/oshokin/alarm-scheduler/internal/notifier"
	"github.com/oshokin/alarm-scheduler/internal/telemetry"
)

// OverduePolicy controls registration of alarms whose target instant has
// already passed relative to the scheduler's clock.
type OverduePolicy int

const (
	// FireImmediately treats overdue alarms as due now. This matches the
	// persistence-then-recovery model: an alarm missed while the process was
	// down still delivers on the next start.
	FireImmediately OverduePolicy = iota
	// Reject refuses overdue registrations with ErrInvalidSchedule.
	Reject
)

const (
	// defaultMaxAttempts bounds delivery retries per activation.
	defaultMaxAttempts = 3
	// defaultRetryBackoff is the base delay before the first retry;
	// it doubles after every failed attempt.
	defaultRetryBackoff = 5 * time.Second

	// notificationBody is the body text of every delivered notification;
	// the alarm title carries the user's label.
	notificationBody = "Alarm"
)

// ErrSchedulerClosed is returned by Register after Shutdown.
var ErrSchedulerClosed = errors.New("scheduler is closed")

// Hooks connect fire outcomes back to the persistence side. The scheduler
// never touches the store directly; it owns only transient wait handles.
type Hooks struct {
	// MarkFired is invoked exactly once per successful delivery.
	// Returning domain.ErrNotFound means the alarm was deleted between
	// due-time and delivery; the scheduler absorbs that as a benign race.
	MarkFired func(ctx context.Context, id int64, firedAt time.Time) error
	// DeliveryFailed is invoked when an activation exhausts its retry
	// budget. The alarm stays active and unfired in the store.
	DeliveryFailed func(ctx context.Context, id int64, attempts int, err error)
}

// Config assembles a Scheduler.
type Config struct {
	// Notifier delivers fired notifications. Required.
	Notifier notifier.Notifier
	// Hooks receive fire outcomes. Individual hooks may be nil.
	Hooks Hooks
	// Clock overrides the wall clock, mainly for tests. Nil means real time.
	Clock Clock
	// OverduePolicy defaults to FireImmediately.
	OverduePolicy OverduePolicy
	// MaxAttempts bounds delivery retries per activation (default: 3).
	MaxAttempts int
	// RetryBackoff is the base delay between attempts (default: 5s).
	RetryBackoff time.Duration
	// Metrics is optional prometheus instrumentation.
	Metrics *telemetry.Metrics
}

// wait is one pending wake-up. At most one wait exists per alarm id; the map
// in Scheduler always points at the newest one.
type wait struct {
	// id keys the wait in the scheduler map.
	id int64
	// title is delivered as the notification title.
	title string
	// at is the target instant.
	at time.Time
	// timer is the pending wake-up or retry handle.
	timer Timer
	// attempts counts notifier calls made for this activation.
	attempts int
	// delivering marks the wait uninterruptible while a notifier call is
	// in flight. It is cleared for the backoff sleep between attempts, so
	// Cancel can remove a wait that is merely waiting to retry.
	delivering bool
}

// Scheduler maps alarm ids to pending waits and fires them at their target
// instants. All exported methods are safe for concurrent use.
type Scheduler struct {
	notifier      notifier.Notifier
	hooks         Hooks
	clock         Clock
	overduePolicy OverduePolicy
	maxAttempts   int
	retryBackoff  time.Duration
	metrics       *telemetry.Metrics

	// baseCtx carries the scoped logger into timer callbacks.
	baseCtx context.Context

	// mu guards waits and closed; it is never held across a notifier call.
	mu     sync.Mutex
	waits  map[int64]*wait
	closed bool

	// inFlight tracks running fire sequences so Shutdown can wait for them.
	inFlight sync.WaitGroup
}

// New creates a Scheduler. The context scopes logging of fire events and
// should stay valid for the scheduler's lifetime.
func New(ctx context.Context, cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	return &Scheduler{
		notifier:      cfg.Notifier,
		hooks:         cfg.Hooks,
		clock:         clock,
		overduePolicy: cfg.OverduePolicy,
		maxAttempts:   maxAttempts,
		retryBackoff:  retryBackoff,
		metrics:       cfg.Metrics,
		baseCtx:       logger.WithName(ctx, "scheduler"),
		waits:         make(map[int64]*wait),
	}
}

// Register schedules a wake-up for the alarm at its target instant.
// Re-registering an id replaces any prior pending wait; there are never two
// concurrent waits for the same id. An instant not strictly in the future is
// handled per the configured OverduePolicy.
func (s *Scheduler) Register(ctx context.Context, id int64, title string, at time.Time) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return ErrSchedulerClosed
	}

	delay := at.Sub(s.clock.Now())
	if delay <= 0 {
		if s.overduePolicy == Reject {
			s.mu.Unlock()

			return domain.ErrInvalidSchedule
		}

		delay = 0
	}

	// Replace semantics: drop the previous wait for this id, if any.
	if prev, ok := s.waits[id]; ok && prev.timer != nil {
		prev.timer.Stop()
	}

	w := &wait{
		id:    id,
		title: title,
		at:    at,
	}
	s.waits[id] = w
	w.timer = s.clock.AfterFunc(delay, func() {
		s.fire(w)
	})

	s.mu.Unlock()

	logger.DebugKV(ctx, "Registered wait", "alarm_id", id, "fire_at", at)

	return nil
}

// Cancel removes the pending wait for id. It is a no-op when no wait exists
// and when the wait has already entered delivery, which is uninterruptible.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.waits[id]
	if !ok || w.delivering {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	delete(s.waits, id)
}

// CancelAll removes every pending wait. Waits already delivering run to
// completion.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range s.waits {
		if w.delivering {
			continue
		}

		if w.timer != nil {
			w.timer.Stop()
		}

		delete(s.waits, id)
	}
}

// Shutdown cancels all pending waits, refuses further registrations and
// waits for in-flight fire sequences to finish or the context to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true

	for id, w := range s.waits {
		if w.timer != nil {
			w.timer.Stop()
		}

		delete(s.waits, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingCount returns the number of waits currently held, delivering ones
// included.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.waits)
}

// fire runs one delivery attempt for w. On transient failure it re-arms a
// retry wake-up with exponential backoff until the budget is exhausted.
func (s *Scheduler) fire(w *wait) {
	s.mu.Lock()

	// The wait may have been cancelled or replaced between the timer firing
	// and this lock acquisition; the map decides which wait is current.
	if s.closed || s.waits[w.id] != w {
		s.mu.Unlock()

		return
	}

	w.delivering = true
	w.attempts++
	attempt := w.attempts

	s.inFlight.Add(1)
	s.mu.Unlock()

	defer s.inFlight.Done()

	ctx := logger.WithKV(s.baseCtx, "alarm_id", w.id)

	if s.metrics != nil {
		s.metrics.DeliveryAttempts.Inc()
	}

	err := s.notifier.Deliver(ctx, w.title, notificationBody)
	if err == nil {
		s.complete(ctx, w)

		return
	}

	if attempt < s.maxAttempts {
		backoff := s.retryBackoff << (attempt - 1)
		logger.WarnKV(ctx, "Delivery failed, retrying",
			"attempt", attempt, "backoff", backoff, "error", err)

		s.mu.Lock()
		if !s.closed && s.waits[w.id] == w {
			// Only the notifier call itself is uninterruptible. The wait is
			// cancellable again while it sleeps between attempts.
			w.delivering = false
			w.timer = s.clock.AfterFunc(backoff, func() {
				s.fire(w)
			})
		}
		s.mu.Unlock()

		return
	}

	// Retries exhausted: the activation is abandoned and surfaced, never
	// silently dropped. The store row stays active and unfired so recovery
	// or a manual toggle retries the alarm.
	if s.metrics != nil {
		s.metrics.DeliveryFailures.Inc()
	}

	logger.ErrorKV(ctx, "Delivery failed, retries exhausted",
		"attempts", attempt, "error", err)

	s.remove(w)

	if s.hooks.DeliveryFailed != nil {
		s.hooks.DeliveryFailed(ctx, w.id, attempt, err)
	}
}

// complete finishes a successful delivery: mark the alarm fired exactly
// once, then drop the wait.
func (s *Scheduler) complete(ctx context.Context, w *wait) {
	firedAt := s.clock.Now().UTC()

	if s.metrics != nil {
		s.metrics.AlarmsFired.Inc()
	}

	if s.hooks.MarkFired != nil {
		if err := s.hooks.MarkFired(ctx, w.id, firedAt); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// The alarm was deleted between due-time and delivery.
				logger.DebugKV(ctx, "Alarm deleted during delivery", "fired_at", firedAt)
			} else {
				logger.ErrorKV(ctx, "Failed to mark alarm fired", "error", err)
			}
		}
	}

	s.remove(w)

	logger.InfoKV(ctx, "Alarm fired", "title", w.title, "fired_at", firedAt, "attempts", w.attempts)
}

// remove drops w from the map unless a replacement wait took its slot.
func (s *Scheduler) remove(w *wait) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waits[w.id] == w {
		delete(s.waits, w.id)
	}
}
