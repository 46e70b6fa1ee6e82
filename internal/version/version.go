package version

import "fmt"

var (
	// Version is the semantic version of the build, overridable via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA stamped at build time, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp stamped at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full renders the version together with commit and build time, for the
// `version` subcommand and startup logs.
func Full() string {
	return fmt.Sprintf("alarm-scheduler %s (commit %s, built %s)", Version, Commit, BuildTime)
}
