// Package server bootstraps the alarm-server daemon: configuration, storage,
// the in-memory schedule, startup recovery and the HTTP API with graceful
// shutdown.
package server
