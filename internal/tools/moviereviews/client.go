package moviereviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BoTlInYQ/mcpserver/internal/config"
	"github.com/BoTlInYQ/mcpserver/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// maxErrorBodyBytes caps how much of a failed response body is echoed into errors
const maxErrorBodyBytes = 512

// ErrorKind classifies API Client failures
type ErrorKind int

const (
	// ErrMissingCredential means no API key is configured; no request was made
	ErrMissingCredential ErrorKind = iota
	// ErrTransport covers connection, timeout, cancellation and rate limiter failures
	ErrTransport
	// ErrHTTPStatus means the API answered with a non-2xx status
	ErrHTTPStatus
	// ErrDecode means the body was not the expected JSON
	ErrDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMissingCredential:
		return "missing_credential"
	case ErrTransport:
		return "transport"
	case ErrHTTPStatus:
		return "http_status"
	case ErrDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is the single error type returned by Client.Search
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Kind == ErrMissingCredential {
		return "Missing API key"
	}
	return "Request failed: " + e.Detail
}

// KindName returns the failure classification for error logs
func (e *APIError) KindName() string {
	return e.Kind.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPClientInterface defines the interface for HTTP clients
type HTTPClientInterface interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Article Search API. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient HTTPClientInterface
	limiter    *rate.Limiter
}

// NewClient creates a client from cfg using the shared proxy-aware HTTP client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return NewClientWithHTTPClient(cfg, httpclient.NewHTTPClientWithProxy(cfg.Timeout, logger))
}

// NewClientWithHTTPClient creates a client that sends requests through httpClient
func NewClientWithHTTPClient(cfg *config.Config, httpClient HTTPClientInterface) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    newLimiter(cfg.RateLimitPerMinute, cfg.RateBurst),
	}
}

func newLimiter(perMinute float64, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
}

// Search fetches a single page of results. Every failure is returned as an
// *APIError; no attempt is retried.
func (c *Client) Search(ctx context.Context, logger *logrus.Logger, req SearchRequest) (*SearchResponse, error) {
	if c.apiKey == "" {
		logger.Warn("Article Search API key not configured")
		return nil, &APIError{Kind: ErrMissingCredential}
	}

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &APIError{Kind: ErrTransport, Detail: fmt.Sprintf("invalid endpoint: %v", err), Err: err}
	}

	params := req.Values()
	logger.WithFields(logrus.Fields{
		"url":    reqURL.String(),
		"params": params.Encode(),
	}).Debug("Making Article Search request")

	params.Set("api-key", c.apiKey)
	reqURL.RawQuery = params.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{Kind: ErrTransport, Detail: fmt.Sprintf("rate limiter: %v", err), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &APIError{Kind: ErrTransport, Detail: c.redact(err.Error()), Err: err}
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.WithError(errors.New(c.redact(err.Error()))).Warn("Article Search request failed")
		return nil, &APIError{Kind: ErrTransport, Detail: c.redact(err.Error()), Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrTransport, Detail: fmt.Sprintf("failed to read response body: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"status":      resp.Status,
		}).Warn("Article Search request returned an error status")
		return nil, &APIError{
			Kind:       ErrHTTPStatus,
			StatusCode: resp.StatusCode,
			Detail:     statusDetail(resp.StatusCode, body),
		}
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &APIError{Kind: ErrDecode, Detail: fmt.Sprintf("invalid JSON response: %v", err), Err: err}
	}

	logger.WithFields(logrus.Fields{
		"status_code":  resp.StatusCode,
		"result_count": len(response.Documents()),
	}).Debug("Article Search request successful")

	return &response, nil
}

// redact removes the credential from text that may embed the request URL
func (c *Client) redact(text string) string {
	if c.apiKey == "" {
		return text
	}
	text = strings.ReplaceAll(text, url.QueryEscape(c.apiKey), "REDACTED")
	return strings.ReplaceAll(text, c.apiKey, "REDACTED")
}

func statusDetail(statusCode int, body []byte) string {
	detail := fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode))

	var fault nytFault
	if err := json.Unmarshal(body, &fault); err == nil && fault.text() != "" {
		return detail + ": " + fault.text()
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return detail
	}
	if len(text) > maxErrorBodyBytes {
		text = text[:maxErrorBodyBytes] + "..."
	}
	return detail + ": " + text
}
