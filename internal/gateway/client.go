// Package gateway talks to the single sheet endpoint that stores products,
// orders, settings and the daily cash book. Reads are GET ?action=<name>,
// writes are POST {action, payload}.
package gateway

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

	"github.com/sirupsen/logrus"
)

const contentType = "text/plain;charset=utf-8"

var ErrNotConfigured = errors.New("falta configurar POS_API_URL")

// HTTPError is a non-2xx answer from the endpoint. Its message is shown to
// the operator as is.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Error API (%d): %s", e.StatusCode, e.Status)
}

// TransportError is a request that never got an answer from the sheet.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sin conexión con la hoja (%s)", e.Action)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a 2xx answer whose envelope reports status "error".
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("la acción %s falló", e.Action)
	}
	return e.Message
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSpace(baseURL),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) get(ctx context.Context, action string, date string) (envelope, error) {
	if c.baseURL == "" {
		return envelope{}, ErrNotConfigured
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return envelope{}, fmt.Errorf("parse api url: %w", err)
	}
	q := endpoint.Query()
	q.Set("action", action)
	if date != "" {
		q.Set("date", date)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	return c.do(req, action)
}

func (c *Client) post(ctx context.Context, action string, payload any) (envelope, error) {
	if c.baseURL == "" {
		return envelope{}, ErrNotConfigured
	}
	body, err := json.Marshal(struct {
		Action  string `json:"action"`
		Payload any    `json:"payload"`
	}{Action: action, Payload: payload})
	if err != nil {
		return envelope{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, action)
}

func (c *Client) do(req *http.Request, action string) (envelope, error) {
	started := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"action": action}).WithError(err).Warn("gateway request failed")
		return envelope{}, &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, &TransportError{Action: action, Err: err}
	}
	c.logger.WithFields(logrus.Fields{
		"action":  action,
		"method":  req.Method,
		"status":  resp.StatusCode,
		"elapsed": c.now().Sub(started).String(),
	}).Debug("gateway request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return envelope{}, &HTTPError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	var env envelope
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
	case raw[0] == '[':
		// some sheets answer reads with a bare array
		env = envelope{Status: "success", Data: raw}
	default:
		if err := json.Unmarshal(raw, &env); err != nil {
			return envelope{}, fmt.Errorf("%s: decode response: %w", action, err)
		}
	}
	if strings.EqualFold(env.Status, "error") {
		return envelope{}, &APIError{Action: action, Message: env.Message}
	}
	return env, nil
}
