// Package common holds helpers shared by the alarm-ctl services.
//
// It provides a gRPC client for the control service with per-call timeouts
// and detects the local actor (hostname and username) sent along with
// commands for the daemon's log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
