package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Status is the body of /health and /ready.
type Status struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time" yaml:"time"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stats is the body of /stats.
type Stats struct {
	Keys    int    `json:"keys" yaml:"keys"`
	Hits    uint64 `json:"hits" yaml:"hits"`
	Misses  uint64 `json:"misses" yaml:"misses"`
	Expired uint64 `json:"expired" yaml:"expired"`
	Shards  []int  `json:"shards" yaml:"shards"`
}

// AdminClient talks to the admin HTTP endpoint of a server.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

// NewAdminClient creates a client for addr. A missing scheme means http.
func NewAdminClient(addr string, timeout time.Duration) *AdminClient {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AdminClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the base URL of the client.
func (c *AdminClient) BaseURL() string {
	return c.baseURL
}

// Health queries /health.
func (c *AdminClient) Health(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/health", &st); err != nil {
		return &st, err
	}
	return &st, nil
}

// Ready queries /ready. A server that is not ready returns its status
// together with an error.
func (c *AdminClient) Ready(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/ready", &st); err != nil {
		return &st, err
	}
	return &st, nil
}

// Stats queries /stats.
func (c *AdminClient) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.get(ctx, "/stats", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// get decodes the JSON body into target, also for error statuses, and
// fails on any status >= 400.
func (c *AdminClient) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "memkv-cli")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer res.Body.Close()

	decodeErr := json.NewDecoder(res.Body).Decode(target)
	if res.StatusCode >= 400 {
		if st, ok := target.(*Status); ok && decodeErr == nil && st.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", path, st.Status, st.Error)
		}
		return fmt.Errorf("GET %s: status %d", path, res.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("GET %s: parse response: %w", path, decodeErr)
	}
	return nil
}
