package command

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// DefaultPollTimeout bounds one Poll when the caller does not configure it.
const DefaultPollTimeout = 7 * time.Second

// lineBuffer is how many complete lines may wait for a Poll.
const lineBuffer = 16

// Source publishes complete input lines to Poll.
type Source struct {
	lines chan string
	done  chan struct{}
	err   error
}

// NewSource starts reading r in the background.
func NewSource(r io.Reader) *Source {
	s := &Source{
		lines: make(chan string, lineBuffer),
		done:  make(chan struct{}),
	}

	go s.read(bufio.NewReader(r))

	return s
}

// read forwards newline-terminated lines. An unterminated tail at EOF is dropped.
func (s *Source) read(r *bufio.Reader) {
	defer close(s.done)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}

			return
		}

		s.lines <- line
	}
}

// Poll waits up to timeout for a complete line and returns it trimmed of
// surrounding whitespace. It returns false on timeout, on an empty line, after
// the reader is exhausted or when ctx is done.
func (s *Source) Poll(ctx context.Context, timeout time.Duration) (string, bool) {
	line, received := s.Receive(ctx, timeout)

	return line, received && line != ""
}

// Receive is Poll except that an empty line counts as received. It lets callers
// tell operator input apart from a timeout.
func (s *Source) Receive(ctx context.Context, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-s.lines:
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		return "", false
	case <-timer.C:
		return "", false
	case <-s.done:
		// Lines queued before EOF are still delivered.
		select {
		case line := <-s.lines:
			return strings.TrimSpace(line), true
		default:
			return "", false
		}
	}
}

// Done is closed once the reader hit EOF or an error.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Err returns the read error that stopped the source, if any. Valid after Done.
func (s *Source) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Exhausted reports whether the reader stopped and no lines are pending.
func (s *Source) Exhausted() bool {
	select {
	case <-s.done:
		return len(s.lines) == 0
	default:
		return false
	}
}
