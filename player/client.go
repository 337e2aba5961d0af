package player

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/bytedance/sonic"
)

var (
	// ErrForbidden means the caller may not report progress for this
	// student. Playback must be locked.
	ErrForbidden = errors.New("progress reporting forbidden")
	// ErrSessionTerminated means the server no longer accepts this device.
	ErrSessionTerminated = errors.New("session terminated")
	ErrNotFound          = errors.New("resource not found")
	// ErrTransient covers rate limiting, server and network failures. The
	// request may be dropped and retried on the next interval.
	ErrTransient = errors.New("temporary failure")
)

// APIError is a non 2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// ProgressAPI reports watch progress for one video
type ProgressAPI interface {
	Tick(ctx context.Context, videoID string, req dto.TickRequest) (*dto.TickResponse, error)
}

// SessionAPI checks whether this device still owns the session
type SessionAPI interface {
	CheckIn(ctx context.Context) (*dto.CheckInResult, error)
	Validate(ctx context.Context) (*dto.SessionValidityResponse, error)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIClient talks to the viewing session API over HTTP
type APIClient struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

type ClientOption func(*APIClient)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *APIClient) { c.http = client }
}

// WithUserAgent sets the User-Agent the server fingerprints. Browsers send
// their own; native players must pass a stable value.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *APIClient) { c.userAgent = userAgent }
}

func NewAPIClient(baseURL, token string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) Tick(ctx context.Context, videoID string, req dto.TickRequest) (*dto.TickResponse, error) {
	var resp dto.TickResponse
	path := "/api/v1/videos/" + url.PathEscape(videoID) + "/play-state/tick"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) GetPlayState(ctx context.Context, videoID string) (*dto.PlayStateResponse, error) {
	var resp dto.PlayStateResponse
	path := "/api/v1/videos/" + url.PathEscape(videoID) + "/play-state"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) CheckIn(ctx context.Context) (*dto.CheckInResult, error) {
	var resp dto.CheckInResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/session/check-in", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Validate(ctx context.Context) (*dto.SessionValidityResponse, error) {
	var resp dto.SessionValidityResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/session/validate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}

	var env envelope
	_ = sonic.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			kind:       classifyStatus(resp.StatusCode),
		}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrSessionTerminated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		return ErrTransient
	}
	return nil
}
