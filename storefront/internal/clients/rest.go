package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 1 << 20

// ErrUnavailable is returned while the breaker for a service is open.
var ErrUnavailable = errors.New("service temporarily unavailable")

// APIError is a non-2xx answer from a downstream service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status code %d", e.Status)
}

// UserFacing reports whether the message is meant for the end user. Server
// errors are not.
func (e *APIError) UserFacing() bool { return e.Status < http.StatusInternalServerError }

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// StatusOf returns the downstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

// restClient is the shared JSON-over-HTTP plumbing behind the service clients.
type restClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

func newRestClient(name, baseURL string, timeout time.Duration, log *slog.Logger) *restClient {
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.Ignore = func(err error) bool {
		status := StatusOf(err)
		return status > 0 && status < http.StatusInternalServerError
	}
	return &restClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[struct{}](cfg, log),
	}
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out (when
// non-nil). token, if set, is forwarded as the bearer token.
func (c *restClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to call %s service: %w", c.name, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, decodeAPIError(resp.StatusCode, body)
		}
		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return struct{}{}, fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return struct{}{}, nil
	})
	if circuitbreaker.IsOpen(err) {
		return fmt.Errorf("%s: %w", c.name, ErrUnavailable)
	}
	return err
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Error
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
