// Package notifier adapts the scheduler's fire event to a delivery mechanism.
//
// Implementations are stateless and perform no retries of their own; the
// retry policy lives in the scheduler so backoff and giving-up decisions stay
// centralized and testable independent of the delivery mechanism.
package notifier
