// Package notify delivers alarm messages to remote destinations without
// blocking the control loop.
//
// Each destination gets its own worker goroutine, rate limiter and two bounded
// queues, one for critical messages and one for telemetry. Critical messages
// bypass the limiter and are never queued behind a waiting sample.
// Failures are logged and counted but never retried and never reported back
// to the caller of Dispatcher.Notify.
package notify
