// Package client provides an HTTP client for the alarm scheduler API.
//
// It wraps the JSON endpoints exposed by alarm-server and converts typed
// error responses back into domain errors, so callers can use errors.Is
// the same way they would against the service layer directly.
package client
