package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const maxErrorBody = 64 << 10

// hintTransport records the Retry-After hint of the latest response so the
// retry loop can honor it; the SDK drops response headers on errors.
// It also makes sure error bodies carry the {"error": {...}} envelope the
// SDK dereferences when building an APIError. The last status code is kept
// so decode failures on 2xx bodies can be told apart from transport errors.
type hintTransport struct {
	base       http.RoundTripper
	retryAfter atomic.Int64
	status     atomic.Int64
}

func (t *hintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	t.retryAfter.Store(int64(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())))
	t.status.Store(int64(resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("reading error body: %w", err)
	}

	body = ensureErrorEnvelope(resp.StatusCode, body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Length")
	return resp, nil
}

// take returns the recorded hint and clears it.
func (t *hintTransport) take() time.Duration {
	return time.Duration(t.retryAfter.Swap(0))
}

// takeStatus returns the status of the latest response, 0 if none arrived.
func (t *hintTransport) takeStatus() int {
	return int(t.status.Swap(0))
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ensureErrorEnvelope returns body as an {"error": {...}} object whose code
// is the HTTP status, wrapping plain-text or foreign bodies.
func ensureErrorEnvelope(status int, body []byte) []byte {
	var envelope struct {
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if code, ok := envelope.Error["code"].(float64); ok && int(code) == status {
			return body
		}
		envelope.Error["code"] = status
		if patched, err := json.Marshal(envelope); err == nil {
			return patched
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	wrapped, err := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": msg,
			"status":  http.StatusText(status),
		},
	})
	if err != nil {
		return body
	}
	return wrapped
}

// retryInfoDelay extracts google.rpc.RetryInfo.retryDelay from API error details.
func retryInfoDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		typ, _ := d["@type"].(string)
		if !strings.HasSuffix(typ, "google.rpc.RetryInfo") {
			continue
		}
		raw, ok := d["retryDelay"].(string)
		if !ok {
			continue
		}
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay
		}
	}
	return 0
}
