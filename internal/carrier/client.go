package carrier

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

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

var (
	ErrMalformedResponse = errors.New("carrier: malformed response")
	ErrAuthFailed        = errors.New("carrier: authentication failed")
	ErrNotConfigured     = errors.New("carrier: endpoint not configured")
)

// StatusError is a non-2xx answer from the carrier.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("carrier %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the carrier.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

func isAuthStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}

type Config struct {
	BaseURL     string
	APIToken    string
	B2BBaseURL  string
	B2BUsername string
	B2BPassword string
	Timeout     time.Duration
}

// Client talks to the carrier's parcel (B2C) and freight (B2B) APIs.
type Client struct {
	baseURL  *url.URL
	b2bURL   *url.URL
	apiToken string
	username string
	password string

	http    *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, logger zerolog.Logger, m *metrics.Metrics) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid carrier base url %q: %w", cfg.BaseURL, err)
	}
	b2b, err := parseBaseURL(cfg.B2BBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid carrier b2b base url %q: %w", cfg.B2BBaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  base,
		b2bURL:   b2b,
		apiToken: cfg.APIToken,
		username: cfg.B2BUsername,
		password: cfg.B2BPassword,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "carrier").Logger(),
		metrics:  m,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	u, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("missing scheme or host")
	}
	return u, nil
}

type request struct {
	endpoint string
	base     *url.URL
	method   string
	path     string
	query    url.Values
	bearer   string
	body     any
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.base == nil {
		return fmt.Errorf("%w: %s", ErrNotConfigured, req.endpoint)
	}
	u := req.base.ResolveReference(&url.URL{Path: strings.TrimLeft(req.path, "/"), RawQuery: req.query.Encode()})

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", req.endpoint, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.CarrierRequest(req.endpoint, 0)
		return fmt.Errorf("carrier %s: %w", req.endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.CarrierRequest(req.endpoint, resp.StatusCode)

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("carrier %s: read body: %w", req.endpoint, err)
	}

	c.logger.Debug().
		Str("endpoint", req.endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("carrier call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: req.endpoint, StatusCode: resp.StatusCode, Body: truncate(string(payload), 256)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, req.endpoint, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
