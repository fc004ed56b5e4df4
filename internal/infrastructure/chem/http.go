package chem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
)

const maxRetryWait = 10 * time.Second

type httpTransport struct {
	baseURL    string
	httpClient *http.Client
	retryMax   int
	retryWait  time.Duration
	logger     logging.Logger
}

// NewHTTPClient returns a Client that POSTs JSON to {base}/v1/<op>.
func NewHTTPClient(cfg config.OracleConfig, log logging.Logger) *Client {
	applyDefaults(&cfg)
	t := &httpTransport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retryMax:   cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
		logger:     log.Named("oracle.http"),
	}
	return newClient(t, log)
}

func applyDefaults(cfg *config.OracleConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultOracleBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultOracleTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = config.DefaultOracleRetryWait
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (t *httpTransport) call(ctx context.Context, op string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	url := t.baseURL + "/v1/" + op

	var lastErr error
	for attempt := 0; attempt <= t.retryMax; attempt++ {
		if attempt > 0 {
			backoff := t.backoff(attempt)
			t.logger.Debug("retrying oracle call", logging.String("op", op), logging.Int("attempt", attempt), logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return unavailable(op, ctx.Err())
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("X-Request-ID", requestID(ctx))

		start := time.Now()
		httpResp, err := t.httpClient.Do(httpReq)
		if err != nil {
			t.logger.Warn("oracle request failed", logging.String("op", op), logging.Err(err))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		data, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		t.logger.Debug("oracle call", logging.String("op", op), logging.Int("status", httpResp.StatusCode), logging.Duration("duration", time.Since(start)))

		switch {
		case httpResp.StatusCode < 300:
			if err := json.Unmarshal(data, resp); err != nil {
				return unavailable(op, fmt.Errorf("undecodable %s response: %w", op, err))
			}
			return nil
		case httpResp.StatusCode == http.StatusBadRequest || httpResp.StatusCode == http.StatusUnprocessableEntity:
			return malformed(op, errorMessage(data))
		case httpResp.StatusCode >= 500:
			lastErr = fmt.Errorf("oracle returned %d: %s", httpResp.StatusCode, errorMessage(data))
			continue
		default:
			return unavailable(op, fmt.Errorf("oracle returned %d: %s", httpResp.StatusCode, errorMessage(data)))
		}
	}
	return unavailable(op, lastErr)
}

func (t *httpTransport) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return unavailable("ping", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unavailable("ping", fmt.Errorf("health check returned %d", resp.StatusCode))
	}
	return nil
}

func (t *httpTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

// backoff doubles the wait per attempt up to maxRetryWait.
func (t *httpTransport) backoff(attempt int) time.Duration {
	d := t.retryWait * time.Duration(1<<uint(attempt-1))
	if d > maxRetryWait || d <= 0 {
		d = maxRetryWait
	}
	return d
}

func errorMessage(data []byte) string {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return strings.TrimSpace(string(data))
}

func requestID(ctx context.Context) string {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
