// Package telemetry exposes prometheus instrumentation for the alarm daemon.
//
// Counters cover alarm creation, firing and delivery attempts; Handler serves
// them on /metrics. Everything is registered on a dedicated registry so tests
// can read counter values without touching global state.
package telemetry
