// Package config defines daemon settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the HTTP listen address, the SQLite database path,
// the notifier selection and the delivery retry policy.
package config
