// Package client is a Go SDK for the flame-data HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const Version = "0.1.0"

// DefaultCookieName is the session cookie set by the server.
const DefaultCookieName = "flame_session"

// ErrInvalidConfig is returned by NewClient for an unusable base URL.
var ErrInvalidConfig = stderrors.New("flamedata: invalid client configuration")

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client talks to one flame-data server. It keeps the session cookie
// returned by Login or Register and sends it on every later request.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	cookieName   string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	mu    sync.RWMutex
	token string

	species     *SpeciesClient
	speciesOnce sync.Once
	reactions   *ReactionsClient
	reactOnce   sync.Once
	collections *CollectionsClient
	collOnce    sync.Once
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flamedata: HTTP %d: %s [request_id=%s]", e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsConflict() bool     { return e.StatusCode == http.StatusConflict }
func (e *APIError) IsRateLimited() bool  { return e.StatusCode == http.StatusTooManyRequests }
func (e *APIError) IsServerError() bool  { return e.StatusCode >= 500 && e.StatusCode < 600 }

// User is an account as reported by the server.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type envelope struct {
	Contents json.RawMessage `json:"contents"`
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrInvalidConfig
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", ErrInvalidConfig, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", ErrInvalidConfig)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		userAgent:    fmt.Sprintf("flamedata-go-sdk/%s", Version),
		cookieName:   DefaultCookieName,
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Species returns the species sub-client.
func (c *Client) Species() *SpeciesClient {
	c.speciesOnce.Do(func() { c.species = &SpeciesClient{client: c} })
	return c.species
}

// Reactions returns the reactions sub-client.
func (c *Client) Reactions() *ReactionsClient {
	c.reactOnce.Do(func() { c.reactions = &ReactionsClient{client: c} })
	return c.reactions
}

// Collections returns the collections sub-client.
func (c *Client) Collections() *CollectionsClient {
	c.collOnce.Do(func() { c.collections = &CollectionsClient{client: c} })
	return c.collections
}

// SessionToken returns the current session cookie value, empty when logged out.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var u User
	if err := c.post(ctx, "/api/register", credentials{email, password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login opens a session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var u User
	if err := c.post(ctx, "/api/login", credentials{email, password}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout revokes the session and forgets the cookie.
func (c *Client) Logout(ctx context.Context) error {
	err := c.post(ctx, "/api/logout", nil, nil)
	c.setToken("")
	return err
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/api/@me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// do performs a request, retrying idempotent ones on network errors and 5xx.
// result receives the "contents" member of the success envelope.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	retries := 0
	if method == http.MethodGet || method == http.MethodPut || method == http.MethodDelete {
		retries = c.retryMax
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		requestID := uuid.New().String()
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)
		if token := c.SessionToken(); token != "" {
			req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		c.captureSession(resp)

		if resp.StatusCode == http.StatusTooManyRequests && attempt < retries {
			if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				c.logger.Infof("Rate limited, retrying after %d seconds", seconds)
				select {
				case <-time.After(time.Duration(seconds) * time.Second):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
				apiErr.Message = errResp.Error
			} else {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			var env envelope
			if err := json.Unmarshal(respBody, &env); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
			if len(env.Contents) > 0 {
				if err := json.Unmarshal(env.Contents, result); err != nil {
					return fmt.Errorf("failed to unmarshal response contents: %w", err)
				}
			}
		}
		return nil
	}
	return lastErr
}

// captureSession tracks the session cookie across Set-Cookie headers.
func (c *Client) captureSession(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != c.cookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.setToken("")
		} else {
			c.setToken(ck.Value)
		}
	}
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) delete(ctx context.Context, path string, body interface{}) error {
	return c.do(ctx, http.MethodDelete, path, body, nil)
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if quarter := int64(backoff / 4); quarter > 0 {
		backoff += time.Duration(rand.Int63n(quarter))
	}
	return backoff
}
