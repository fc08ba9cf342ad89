// Package httpx carries the soft-failure HTTP plumbing shared by the thin
// service clients. External services being down is an expected condition, so
// calls return a Result instead of an error and leave the decision to the
// caller.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call.
const DefaultTimeout = 15 * time.Second

// Result is the uniform outcome of a service call. OK means the request
// reached the service and came back 2xx. A transport failure yields
// Status 0 and the error text in Body.
type Result struct {
	OK     bool
	Status int
	Body   []byte
}

// DecodeJSON unmarshals the body into out. Only meaningful on OK results.
func (r Result) DecodeJSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NewClient returns the http.Client the service clients share.
func NewClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// Do performs one request and folds every failure mode into a Result. A JSON
// body is encoded when body is non-nil; headers are applied verbatim.
func Do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) Result {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result{Body: []byte(fmt.Sprintf("encode request: %v", err))}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Result{Body: []byte(fmt.Sprintf("build request: %v", err))}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Body: []byte(err.Error())}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Body: []byte(fmt.Sprintf("read response: %v", err))}
	}
	return Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Body:   raw,
	}
}
