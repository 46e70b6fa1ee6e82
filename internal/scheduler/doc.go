// Package scheduler maintains the in-memory schedule of pending alarm fires.
//
// Each registered alarm owns exactly one pending wait keyed by its id. A wait
// resumes once at its target instant, delivers the notification through the
// configured Notifier with bounded retry backoff, reports the outcome through
// Hooks, and removes itself from the schedule. The id-to-wait map is a
// disposable cache of pending work: the store stays the single source of
// truth and recovery rebuilds the map after a restart.
//
// The clock is injectable so tests can drive time deterministically.
package scheduler
