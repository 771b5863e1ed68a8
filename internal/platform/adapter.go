// Package platform provides the destination adapters that mirror events into
// Google Calendar, Discord and TeamUp.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fhdsa/eventbridge/internal/storage/models"
)

// Adapter errors.
var (
	// ErrNotConfigured is returned when a platform has no credentials.
	ErrNotConfigured = errors.New("platform not configured")

	// ErrNotRouted is returned when no destination calendar could be
	// resolved for an event, not even a default.
	ErrNotRouted = errors.New("no destination calendar for event")
)

// Adapter mirrors events into one destination platform.
type Adapter interface {
	// Platform identifies the destination.
	Platform() models.Platform

	// Configured reports whether credentials are present. Unconfigured
	// adapters are never called.
	Configured() bool

	// Create mirrors a new event and returns where it was created.
	Create(ctx context.Context, ev models.Event) (models.DestinationRef, error)

	// Update overwrites a previously created event.
	Update(ctx context.Context, ref models.DestinationRef, ev models.Event) error

	// Delete removes a previously created event.
	Delete(ctx context.Context, ref models.DestinationRef) error

	// TestConnection checks live connectivity with the platform.
	TestConnection(ctx context.Context) bool
}

// StatusError is returned when a platform answers with anything other than
// its documented success status.
type StatusError struct {
	Platform   models.Platform
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API error (status %d): %s", e.Platform, e.Op, e.StatusCode, e.Body)
}

// restClient performs JSON calls against a platform REST API.
type restClient struct {
	platform   models.Platform
	baseURL    string
	httpClient *http.Client
	authorize  func(h http.Header)
}

func newRESTClient(platform models.Platform, baseURL string, timeout time.Duration, authorize func(h http.Header)) restClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return restClient{
		platform:   platform,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		authorize:  authorize,
	}
}

// do sends body as JSON and decodes the response into out when the status
// equals want. Any other status yields a *StatusError.
func (c restClient) do(ctx context.Context, op, method, path string, body, out any, want int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.authorize(req.Header)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: request failed: %w", c.platform, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{
			Platform:   c.platform,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", c.platform, op, err)
	}
	return nil
}

// ConfiguredOnly filters adapters down to those with credentials.
func ConfiguredOnly(adapters []Adapter) []Adapter {
	out := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		if a != nil && a.Configured() {
			out = append(out, a)
		}
	}
	return out
}

// logFailure records a failed platform call with status and body when known.
func logFailure(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	var se *StatusError
	if errors.As(err, &se) {
		fields = append(fields, zap.Int("status", se.StatusCode), zap.String("body", se.Body))
	}
	fields = append(fields, zap.Error(err))
	if errors.Is(err, ErrNotRouted) {
		logger.Warn(op+" skipped", fields...)
		return
	}
	logger.Error(op+" failed", fields...)
}
