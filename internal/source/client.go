// Package source provides the Action Network events API client.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// DefaultBaseURL is the Action Network API v2 root.
const DefaultBaseURL = "https://actionnetwork.org/api/v2"

// Config holds the configuration for Action Network API access.
type Config struct {
	// BaseURL is the API root, without trailing slash.
	BaseURL string

	// APIKey is sent as the OSDI-API-Token header.
	APIKey string

	// Timeout for API requests.
	Timeout time.Duration
}

// Configured reports whether an API key is present.
func (c Config) Configured() bool {
	return c.APIKey != ""
}

// Client is a client for the Action Network events API.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Action Network API client.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.Named("actionnetwork"),
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.config.Configured()
}

// APIKeyLength returns the length of the configured key, for diagnostics.
func (c *Client) APIKeyLength() int {
	return len(c.config.APIKey)
}

type eventsPage struct {
	Embedded struct {
		Events []models.SourceEvent `json:"osdi:events"`
	} `json:"_embedded"`
}

// FetchEvents retrieves one page of at most limit events, in API order.
func (c *Client) FetchEvents(ctx context.Context, limit int) ([]models.SourceEvent, error) {
	c.logger.Info("fetching events", zap.Int("limit", limit))

	resp, err := c.get(ctx, "/events", limit)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("fetch events failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}

	var page eventsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}

	c.logger.Info("fetched events", zap.Int("count", len(page.Embedded.Events)))
	return page.Embedded.Events, nil
}

// TestConnection checks that the events endpoint answers with 200.
func (c *Client) TestConnection(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}

	resp, err := c.get(ctx, "/events", 1)
	if err != nil {
		c.logger.Warn("connection test failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("connection test failed", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// ProbeResult is a raw readout of one API call for debugging.
type ProbeResult struct {
	Path       string `json:"path"`
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Probe calls the events listing and the API root and reports raw results.
// Bodies are cut to 500 bytes.
func (c *Client) Probe(ctx context.Context) []ProbeResult {
	paths := []string{"/events", "/"}
	results := make([]ProbeResult, 0, len(paths))

	for _, p := range paths {
		r := ProbeResult{Path: p}
		resp, err := c.get(ctx, p, 0)
		if err != nil {
			r.Error = err.Error()
			results = append(results, r)
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		resp.Body.Close()
		r.StatusCode = resp.StatusCode
		r.Body = string(body)
		results = append(results, r)
	}
	return results
}

func (c *Client) get(ctx context.Context, path string, limit int) (*http.Response, error) {
	u := c.config.BaseURL + path
	if limit > 0 {
		u += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("OSDI-API-Token", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
