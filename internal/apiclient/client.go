// Package apiclient is the single HTTP doorway to the remote time-tracking
// API. It only moves bytes and decodes envelopes; sentinel interpretation
// and redirect side effects belong to the session guard.
package apiclient

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
	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/models"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

func New(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a fully read reply. Body is retained so callers can decode
// it more than once (envelope first, payload second).
type Response struct {
	Status int
	Body   []byte
}

// Envelope decodes the common {message, data} shape. A body that is not
// JSON yields an empty envelope rather than an error; the caller treats
// an empty message as an unrecognized reply.
func (r *Response) Envelope() *models.Envelope {
	var env models.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return &models.Envelope{}
	}
	return &env
}

func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do issues one JSON request. A non-empty token is sent as a bearer
// credential. Every HTTP status is returned to the caller as data; only
// transport failures surface as errors.
func (c *Client) Do(ctx context.Context, method, path, token string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     method,
			"path":       path,
		}).WithError(err).Warn("request failed")
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"elapsed":    time.Since(started).String(),
	}).Debug("request done")

	return &Response{Status: resp.StatusCode, Body: data}, nil
}

// GetBinary retrieves a binary payload (spreadsheet exports). The body is
// returned for every status so callers can distinguish 404 from other
// failures.
func (c *Client) GetBinary(ctx context.Context, path, token string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, token, nil)
}
