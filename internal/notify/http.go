package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/oshokin/vibration-alarm/internal/version"
)

// maxResponseBody caps how much of a remote answer is read.
const maxResponseBody = 64 << 10

type httpResult struct {
	status int
	body   []byte
}

func (r httpResult) ok() bool {
	return r.status >= http.StatusOK && r.status < http.StatusMultipleChoices
}

// postJSON sends payload as JSON and returns the status and a bounded body.
func postJSON(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	headers map[string]string,
	payload any,
) (httpResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return httpResult{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return httpResult{}, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return httpResult{}, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return httpResult{status: resp.StatusCode}, err
	}

	return httpResult{status: resp.StatusCode, body: body}, nil
}
