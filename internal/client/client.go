package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/oshokin/alarm-scheduler/internal/api/http/alarm"
	domain "github.com/oshokin/alarm-scheduler/internal/domain/alarm"
)

// defaultCallTimeout bounds individual API calls when the caller's context
// carries no deadline of its own.
const defaultCallTimeout = 10 * time.Second

// Client talks to the alarm scheduler HTTP API.
type Client struct {
	// baseURL is the server root, e.g. "http://localhost:8080".
	baseURL string
	// httpClient performs the actual requests.
	httpClient *http.Client

	// callTimeout is the default timeout for individual API calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for API calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// New builds a client for the server at the given address.
// A bare host:port is assumed to be plain HTTP.
func New(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse server address %q: %w", address, err)
	}

	client := &Client{
		baseURL:     strings.TrimRight(parsed.String(), "/"),
		httpClient:  &http.Client{},
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// CreateAlarm registers a new alarm and returns its server-side representation.
func (c *Client) CreateAlarm(ctx context.Context, title string, scheduledAt time.Time) (*api.AlarmResponse, error) {
	request := api.CreateAlarmRequest{
		Title:       title,
		ScheduledAt: scheduledAt,
	}

	var response api.AlarmResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/alarms", request, &response); err != nil {
		return nil, fmt.Errorf("create alarm: %w", err)
	}

	return &response, nil
}

// ListAlarms retrieves every stored alarm.
func (c *Client) ListAlarms(ctx context.Context) (*api.ListAlarmsResponse, error) {
	var response api.ListAlarmsResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/alarms", nil, &response); err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	return &response, nil
}

// GetAlarm retrieves one alarm by id.
func (c *Client) GetAlarm(ctx context.Context, id int64) (*api.AlarmResponse, error) {
	var response api.AlarmResponse
	if err := c.call(ctx, http.MethodGet, alarmPath(id), nil, &response); err != nil {
		return nil, fmt.Errorf("get alarm: %w", err)
	}

	return &response, nil
}

// DeleteAlarm removes an alarm.
func (c *Client) DeleteAlarm(ctx context.Context, id int64) error {
	if err := c.call(ctx, http.MethodDelete, alarmPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	return nil
}

// ToggleAlarm activates or deactivates an alarm.
func (c *Client) ToggleAlarm(ctx context.Context, id int64, isActive bool) (*api.AlarmResponse, error) {
	request := api.ToggleAlarmRequest{IsActive: &isActive}

	var response api.AlarmResponse
	if err := c.call(ctx, http.MethodPatch, alarmPath(id), request, &response); err != nil {
		return nil, fmt.Errorf("toggle alarm: %w", err)
	}

	return &response, nil
}

// alarmPath builds the per-alarm resource path.
func alarmPath(id int64) string {
	return "/api/v1/alarms/" + strconv.FormatInt(id, 10)
}

// call performs one JSON round trip. A nil out discards the response body
// after the status check.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	var body io.Reader

	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("call server: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(response)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// decodeAPIError turns a non-2xx reply into a domain error where the code
// maps to one, falling back to a generic error with the server message.
func decodeAPIError(response *http.Response) error {
	var payload api.ErrorResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return fmt.Errorf("server returned status %d", response.StatusCode)
	}

	var base error

	switch payload.Error.Code {
	case api.CodeNotFound:
		base = domain.ErrNotFound
	case api.CodeInvalidSchedule:
		base = domain.ErrInvalidSchedule
	case api.CodePermissionDenied:
		base = domain.ErrPermissionDenied
	case api.CodeAlreadyFired:
		base = domain.ErrAlreadyFired
	default:
		return fmt.Errorf("server error %s: %s", payload.Error.Code, payload.Error.Message)
	}

	return fmt.Errorf("%w: %s", base, payload.Error.Message)
}
