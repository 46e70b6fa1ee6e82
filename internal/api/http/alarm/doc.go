// Package alarm implements the HTTP JSON API of the alarm daemon.
//
// The handler exposes CRUD and toggle operations under /api/v1/alarms and
// maps domain errors to typed error responses. Request and response types
// are exported so the CLI client package can reuse them.
package alarm
