// Package client provides the SWAPI HTTP client: one shared transport per run,
// request gating, status classification and Prometheus instrumentation.
// The client never retries; callers decide whether a failed request is fatal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swapi-export/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for SWAPI client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_requests_total",
		Help: "Total HTTP requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_request_duration_seconds",
		Help:    "HTTP request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_errors_total",
		Help: "Total HTTP errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public Star Wars API root.
const DefaultBaseURL = "https://swapi.dev/api"

// maxErrorBody bounds how much of a failed response body ends up in an error message.
const maxErrorBody = 256

// Client is the shared HTTP client for one run.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://swapi.dev/api".
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single request including body read.
	Timeout time.Duration

	// RateLimit gates outgoing requests. A zero value disables gating.
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// New creates a new client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url must be absolute http(s), got %q", ErrInvalidConfig, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		limiter: ratelimit.NewLimiter(cfg.RateLimit, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// BaseURL returns the resolved API root with a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL resolves an endpoint path ("people/?page=2") against the base URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(strings.TrimLeft(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// Do performs an HTTP request with gating and instrumentation.
// Any status is returned to the caller; only transport failures are errors.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("Executing request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Debug().
			Err(err).
			Str("url", req.URL.String()).
			Str("error_class", string(ErrorClassNetwork)).
			Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
	}

	c.logger.Debug().
		Str("url", req.URL.String()).
		Int("status_code", resp.StatusCode).
		Dur("duration", duration).
		Msg("Request completed")

	return resp, nil
}

// Get performs a GET request to an endpoint path or absolute URL.
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON fetches ref and decodes a 200 response body into v.
// Any other status yields an *APIError.
func (c *Client) GetJSON(ctx context.Context, ref string, v any) error {
	resp, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL, err)
	}
	return nil
}

// UploadFile posts data as a multipart form file under field to target.
// Any non-2xx status yields an *APIError.
func (c *Client) UploadFile(ctx context.Context, target, field, filename string, data []byte) (*http.Response, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.apiError(resp)
	}

	// Drain so the connection can be reused; callers only need status and headers.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp, nil
}

// apiError builds an *APIError from a response, including a bounded body excerpt.
func (c *Client) apiError(resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	class := classifyStatus(resp.StatusCode)
	if class == "" {
		class = ErrorClassUnexpected
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: class,
		Message:    resp.Status,
	}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.URL = resp.Request.URL.String()
	}
	if msg := strings.TrimSpace(string(excerpt)); msg != "" {
		apiErr.Message = resp.Status + ": " + msg
	}
	return apiErr
}

// Close releases idle connections held by the shared transport.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// endpointLabel turns a request URL into a low-cardinality metric label:
// numeric path segments become "{id}" and the query is dropped.
func endpointLabel(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segments {
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}
