// Package alarm implements the engine's business operations.
//
// The Service wires the repository and the scheduler together: it persists
// alarms first, then registers their in-memory waits, and it is the only
// component that writes fired_at or toggles is_active. The dual write of
// store row and scheduler map is intentionally non-transactional; the store
// is ground truth and Recover rebuilds the schedule from it on startup.
package alarm
