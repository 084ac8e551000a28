// Package alarm contains the core domain types of the controller.
//
// State is the arming/alarm state owned by the controller, Command is a parsed
// operator command and Message is the immutable notification value handed to
// the notification dispatcher. Snapshot is a point-in-time copy safe to use
// outside the controller lock.
package alarm
