// Package client implements the alarm-ctl commands that talk to the daemon
// once: arm, disarm and status.
//
// Arm and disarm keep pushing the command until the daemon reports the
// desired arming, so a console started before the daemon still succeeds.
package client
