package notify

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// TestErrorMatchesReasonSentinels checks errors.Is against each reason.
func TestErrorMatchesReasonSentinels(t *testing.T) {
	t.Parallel()

	cases := map[Reason]error{
		ReasonNetworkUnreachable: ErrNetworkUnreachable,
		ReasonTimeout:            ErrTimeout,
		ReasonRemoteRejected:     ErrRemoteRejected,
		ReasonMalformedResponse:  ErrMalformedResponse,
	}

	for reason, sentinel := range cases {
		err := error(&Error{Destination: "bot", Kind: alarm.KindArmed, Reason: reason})
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, sentinel.Error(), reason.String())
	}

	require.Equal(t, "unknown reason 9", Reason(9).String())
}

// TestErrorMessage checks the rendered text and unwrapping of the cause.
func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &Error{
		Destination: "telemetry",
		Kind:        alarm.KindTelemetrySample,
		Reason:      ReasonRemoteRejected,
		Text:        "bad token",
		Err:         cause,
	}

	require.Equal(t, "notify telemetry (TelemetrySample): remote rejected: bad token: boom", err.Error())
	require.ErrorIs(t, err, cause)
}

// TestTransportErrorClassification covers timeouts and URL error stripping.
func TestTransportErrorClassification(t *testing.T) {
	t.Parallel()

	err := transportError("bot", alarm.KindArmed, &url.Error{
		Op:  "Post",
		URL: "https://api.example.com/botSECRET/sendMessage",
		Err: context.DeadlineExceeded,
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.NotContains(t, err.Error(), "SECRET")

	err = transportError("bot", alarm.KindArmed, errors.New("connection refused"))
	require.ErrorIs(t, err, ErrNetworkUnreachable)
}
