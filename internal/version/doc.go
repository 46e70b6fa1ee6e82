// Package version carries the build metadata stamped into the alarm binaries.
//
// Version, Commit and BuildTime are set through ldflags at release time and
// fall back to local-build defaults. Full renders them for the `version`
// subcommand shared by alarm-server and alarm-cli.
package version
