package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// ControlClient talks to a running tracker's control API.
type ControlClient struct {
	baseURL string
	client  ports.HTTPClient
}

// NewControlClient creates a client for the control API at addr, given as
// host:port or as a full URL.
func NewControlClient(addr string, client ports.HTTPClient) *ControlClient {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &ControlClient{baseURL: base, client: client}
}

// State returns the state persisted by the tracker.
func (c *ControlClient) State(ctx context.Context) (domain.State, error) {
	var resp StateResponse
	if err := c.do(ctx, http.MethodGet, StatePath, http.StatusOK, &resp); err != nil {
		return domain.StateStart, err
	}
	return resp.State, nil
}

// Inject queues an event on the tracker.
func (c *ControlClient) Inject(ctx context.Context, kind domain.EventKind, redelivered bool) error {
	path := EventsPath + "/" + url.PathEscape(kind.String())
	if redelivered {
		path += "?redelivered=true"
	}
	return c.do(ctx, http.MethodPost, path, http.StatusAccepted, nil)
}

func (c *ControlClient) do(ctx context.Context, method, path string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e ErrorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
