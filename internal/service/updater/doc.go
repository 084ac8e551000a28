// Package updater replaces the vibration-alarm binary in place.
//
// It downloads the new binary, checks its SHA-512 checksum against the
// published base64 value and applies it atomically with go-update. A running
// daemon is stopped first only when forced.
package updater
