package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/oshokin/vibration-alarm/internal/domain/alarm"
)

// TelemetryName is the destination name of the telemetry service.
const TelemetryName = "telemetry"

var errNotAnObject = errors.New("response is not a JSON object")

// TelemetryDestination posts telemetry samples to an Ubidots-style ingestion API.
type TelemetryDestination struct {
	client   *http.Client
	endpoint string
	token    string
	variable string
}

// NewTelemetryDestination creates a destination posting to {baseURL}/api/v1.6/devices/{device}/.
func NewTelemetryDestination(client *http.Client, baseURL, token, device, variable string) *TelemetryDestination {
	if client == nil {
		client = http.DefaultClient
	}

	return &TelemetryDestination{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/v1.6/devices/" + url.PathEscape(device) + "/",
		token:    token,
		variable: variable,
	}
}

// Name implements Destination.
func (t *TelemetryDestination) Name() string {
	return TelemetryName
}

// Accepts implements Destination. Only telemetry samples are sent.
func (t *TelemetryDestination) Accepts(kind alarm.Kind) bool {
	return kind == alarm.KindTelemetrySample
}

// Send implements Destination.
func (t *TelemetryDestination) Send(ctx context.Context, msg alarm.Message) (*Ack, error) {
	payload := map[string]float64{t.variable: msg.Value}
	headers := map[string]string{"X-Auth-Token": t.token}

	result, err := postJSON(ctx, t.client, t.endpoint, headers, payload)
	if err != nil {
		return nil, transportError(TelemetryName, msg.Kind, err)
	}

	if !result.ok() {
		text := strings.TrimSpace(string(result.body))
		if text == "" {
			text = http.StatusText(result.status)
		}

		return nil, rejected(TelemetryName, msg.Kind, text)
	}

	var body map[string]json.RawMessage
	if err = json.Unmarshal(result.body, &body); err != nil {
		return nil, malformed(TelemetryName, msg.Kind, err)
	}

	if body == nil {
		return nil, malformed(TelemetryName, msg.Kind, errNotAnObject)
	}

	return newAck(TelemetryName, http.StatusText(result.status)), nil
}
