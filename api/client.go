package api

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
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	maxErrorBody    = 64 << 10
)

// Config configures a [Client].
//
// Config instances are intended to be set up during initialization and then
// treated as immutable.
type Config struct {
	// BaseURL is the API root, e.g. "https://lms.example.com/api/v1".
	BaseURL string
	// HTTPClient issues the requests. When nil a plain client with a default
	// timeout is used. The authorization pipeline, when wanted, is installed
	// as this client's transport.
	HTTPClient *http.Client
	// UserAgent is sent on every request when non-empty.
	UserAgent string
	// PageSize bounds offset/limit listing pages. Zero means 100.
	PageSize int
}

// Client talks to the learning platform API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	pageSize  int
}

// New validates cfg and returns a ready Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: BaseURL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:   base,
		http:      hc,
		userAgent: cfg.UserAgent,
		pageSize:  pageSize,
	}, nil
}

// PageSize returns the configured listing page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// WithHTTPClient returns a copy of c that issues requests through hc.
// The base URL and remaining settings are shared.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if c == nil || hc == nil {
		return c
	}
	clone := *c
	clone.http = hc
	return &clone
}

type requestOptions struct {
	bearer         string
	idempotencyKey string
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, opts requestOptions) error {
	if c == nil {
		return errors.New("api: nil client")
	}

	var body io.Reader
	var encoded []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		encoded = data
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		// GetBody lets the authorization pipeline replay the request after a
		// token refresh.
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(encoded)), nil
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if opts.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+opts.bearer)
	}
	if opts.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", opts.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, requestOptions{})
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out, requestOptions{})
}
