// Package command adapts a blocking, line-oriented reader (usually stdin) into
// timeout-bounded command polls.
//
// One goroutine owns the reader and publishes complete lines; Poll only waits
// on a channel, so a caller's timeout is always honoured even while the reader
// is blocked in a read system call.
package command
