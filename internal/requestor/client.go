package requestor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// Config controls how the client reaches the flag service.
type Config struct {
	BaseURL    string
	SDKKey     string
	HTTPClient *http.Client
	// RetryMaxElapsed bounds transport-level retries for connection
	// failures. Zero disables them.
	RetryMaxElapsed time.Duration
}

// Client fetches the full flag+segment snapshot from the flag service.
type Client struct {
	baseURL    string
	sdkKey     string
	httpClient httpDoer
	ownsClient bool
	owned      *http.Client
}

// NewClient constructs a flag service client with the provided configuration.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: normalizeBaseURL(cfg.BaseURL),
		sdkKey:  cfg.SDKKey,
	}
	if cfg.HTTPClient == nil {
		c.owned = &http.Client{Timeout: defaultHTTPTimeout}
		c.ownsClient = true
		c.httpClient = newRetryingDoer(c.owned, cfg.RetryMaxElapsed)
	} else {
		c.httpClient = newRetryingDoer(cfg.HTTPClient, cfg.RetryMaxElapsed)
	}
	return c
}

type allDataPayload struct {
	Flags    map[string]domain.Flag    `json:"flags"`
	Segments map[string]domain.Segment `json:"segments"`
}

// FetchAll retrieves the complete flag and segment state in one request.
func (c *Client) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+allDataPath, nil)
	if err != nil {
		return nil, err
	}
	if c.sdkKey != "" {
		req.Header.Set("Authorization", c.sdkKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{
			Code:    resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var payload allDataPayload
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
		return nil, decodeErr
	}

	return domain.NewSnapshot(payload.Flags, payload.Segments), nil
}

// Close releases the client's own connections. A caller-supplied
// http.Client is left alone.
func (c *Client) Close() error {
	if c.ownsClient && c.owned != nil {
		c.owned.CloseIdleConnections()
	}
	return nil
}
