package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API versions. Each workspace operation is served under exactly one of these.
const (
	APIVersion20 = "2.0"
	APIVersion21 = "2.1"
)

const defaultUserAgent = "workspace-jobs/1.0"

// Config holds workspace REST client configuration
type Config struct {
	Host      string // workspace URL or bare hostname
	Token     string // personal access token sent as a bearer credential
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the default transport; used by tests
	HTTPClient *http.Client
}

// Client talks to the workspace REST API
type Client struct {
	baseURL    *url.URL
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new workspace client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("workspace token is required")
	}

	baseURL, err := BaseURL(config.Host)
	if err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger.Debug("Workspace client initialized",
		slog.String("host", baseURL.Host),
	)

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL normalizes a workspace host into a base URL. A bare hostname is
// assumed to be https; an explicit http:// scheme is kept.
func BaseURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("workspace host is required")
	}

	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}

	u, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid workspace host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid workspace host %q: missing hostname", host)
	}

	return u, nil
}

// Host returns the normalized workspace host
func (c *Client) Host() string {
	return c.baseURL.String()
}

// Get issues a GET request against /api/<version>/<path>
func (c *Client) Get(ctx context.Context, version, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, version, path, query, nil, out)
}

// Post issues a POST request with a JSON body against /api/<version>/<path>
func (c *Client) Post(ctx context.Context, version, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, version, path, nil, in, out)
}

// Do performs a single API call. Non-2xx responses are returned as *APIError.
// Nothing is retried.
func (c *Client) Do(ctx context.Context, method, version, path string, query url.Values, in, out any) error {
	endpoint := c.endpoint(version, path, query)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	c.logger.Debug("Workspace API call",
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, req.URL.Path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) endpoint(version, path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/" + version + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
