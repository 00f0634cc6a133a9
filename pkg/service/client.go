package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helmcode/zeropatch/pkg/model"
	"github.com/helmcode/zeropatch/pkg/parser"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 5 * time.Minute

	analyzePath       = "/analyze"
	generatePatchPath = "/generate_patch"
)

// Client talks to the remote analysis and patching service.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the HTTP
// client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "zeropatch",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	return c
}

// BaseURL returns the service root the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Analyze requests a vulnerability scan of repoURL.
func (c *Client) Analyze(ctx context.Context, repoURL string) ([]model.FileAnalysis, error) {
	body, err := c.post(ctx, analyzePath, repoURL)
	if err != nil {
		return nil, err
	}
	findings, err := parser.ParseAnalysis(body)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	return findings, nil
}

// GeneratePatch requests patches for the findings of repoURL.
func (c *Client) GeneratePatch(ctx context.Context, repoURL string) ([]model.PatchResult, error) {
	body, err := c.post(ctx, generatePatchPath, repoURL)
	if err != nil {
		return nil, err
	}
	patches, err := parser.ParsePatches(body)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	return patches, nil
}

// post sends {"repo_url": ...} and returns the body of a 2xx JSON response.
// Failures are reported in detection order: transport, status, content type.
func (c *Client) post(ctx context.Context, path, repoURL string) ([]byte, error) {
	jsonBody, err := json.Marshal(map[string]string{"repo_url": repoURL})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)

	log := c.logger.With("path", path, "request_id", requestID)
	log.Debug("sending request", "repo_url", repoURL)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("request failed", "error", err)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	log.Debug("response received", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return nil, &ContentTypeError{ContentType: contentType}
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return respBytes, nil
}
