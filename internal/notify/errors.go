package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// Reason classifies a failed send.
type Reason int

const (
	// ReasonNetworkUnreachable means the remote could not be reached.
	ReasonNetworkUnreachable Reason = iota + 1
	// ReasonTimeout means the send did not finish in time.
	ReasonTimeout
	// ReasonRemoteRejected means the remote answered with a refusal.
	ReasonRemoteRejected
	// ReasonMalformedResponse means the answer could not be understood.
	ReasonMalformedResponse
)

var (
	// ErrNetworkUnreachable matches errors with ReasonNetworkUnreachable.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrTimeout matches errors with ReasonTimeout.
	ErrTimeout = errors.New("timeout")
	// ErrRemoteRejected matches errors with ReasonRemoteRejected.
	ErrRemoteRejected = errors.New("remote rejected")
	// ErrMalformedResponse matches errors with ReasonMalformedResponse.
	ErrMalformedResponse = errors.New("malformed response")
)

// String returns the reason name.
func (r Reason) String() string {
	if sentinel := r.sentinel(); sentinel != nil {
		return sentinel.Error()
	}

	return fmt.Sprintf("unknown reason %d", int(r))
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonNetworkUnreachable:
		return ErrNetworkUnreachable
	case ReasonTimeout:
		return ErrTimeout
	case ReasonRemoteRejected:
		return ErrRemoteRejected
	case ReasonMalformedResponse:
		return ErrMalformedResponse
	default:
		return nil
	}
}

// Error is a failed send to one destination.
type Error struct {
	// Destination is the name of the destination.
	Destination string
	// Kind is the kind of the message that failed.
	Kind alarm.Kind
	// Reason classifies the failure.
	Reason Reason
	// Text is the remote's explanation for a rejection.
	Text string
	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	msg := fmt.Sprintf("notify %s (%s): %s", e.Destination, e.Kind, e.Reason)

	if e.Text != "" {
		msg += ": " + e.Text
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes the reason sentinel and the underlying error to errors.Is.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)

	if sentinel := e.Reason.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func rejected(destination string, kind alarm.Kind, text string) *Error {
	return &Error{Destination: destination, Kind: kind, Reason: ReasonRemoteRejected, Text: text}
}

func malformed(destination string, kind alarm.Kind, err error) *Error {
	return &Error{Destination: destination, Kind: kind, Reason: ReasonMalformedResponse, Err: err}
}

// transportError classifies a failure to reach the remote.
// URL errors are unwrapped so credentials embedded in request paths never reach the logs.
func transportError(destination string, kind alarm.Kind, err error) *Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	reason := ReasonNetworkUnreachable

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr) && netErr.Timeout():
		reason = ReasonTimeout
	}

	return &Error{Destination: destination, Kind: kind, Reason: reason, Err: err}
}
