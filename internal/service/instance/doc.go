// Package instance keeps a single vibration-alarm daemon per host.
//
// Two daemons fighting over the same GPIO lines would flip the outputs, so
// the daemon refuses to start when another process with its executable name
// is alive, and the updater can stop it before replacing the binary.
package instance
