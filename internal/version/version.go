package version

import "fmt"

var (
	// Version is the semantic version of the build, overridden via ldflags.
	Version = "0.3.0"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// UserAgent identifies the daemon in outgoing HTTP requests.
func UserAgent() string {
	return "vibration-alarm/" + Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
