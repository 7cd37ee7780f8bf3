// Package transaction wraps the P21 Transaction API: batch create and
// update of records through service-defined transaction sets.
//
// The Transaction API is served from the uiserver base URL, not the main
// API root. Synchronous submits borrow a session from the server's session
// pool; the async endpoint uses a dedicated session and avoids pool
// contamination at the cost of latency.
package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ifpusa/p21-tools/internal/api"
)

// Client calls the Transaction API on a uiserver root.
type Client struct {
	api *api.Client
}

// NewClient wraps an api.Client rooted at the uiserver base URL.
func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Services lists all services available through the Transaction API.
func (c *Client) Services(ctx context.Context) ([]ServiceInfo, error) {
	var raw json.RawMessage
	if err := c.api.Get(ctx, "/api/v2/services", nil, &raw); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	// Either a bare array or {"value": [...]} depending on server version.
	var services []ServiceInfo
	if err := json.Unmarshal(raw, &services); err == nil {
		return services, nil
	}

	var wrapped struct {
		Value []ServiceInfo `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}
	return wrapped.Value, nil
}

// Definition fetches the schema/template for a service. Definitions are
// vendor-shaped and large, so they stay untyped.
func (c *Client) Definition(ctx context.Context, service string) (map[string]any, error) {
	var def map[string]any
	if err := c.api.Get(ctx, "/api/v2/definition/"+service, nil, &def); err != nil {
		return nil, fmt.Errorf("get definition %s: %w", service, err)
	}
	return def, nil
}

// Defaults fetches the default field values for a service.
func (c *Client) Defaults(ctx context.Context, service string) (map[string]any, error) {
	var defaults map[string]any
	if err := c.api.Get(ctx, "/api/v2/defaults/"+service, nil, &defaults); err != nil {
		return nil, fmt.Errorf("get defaults %s: %w", service, err)
	}
	return defaults, nil
}

// Submit posts a transaction set synchronously. A nil error only means the
// HTTP exchange succeeded; check Result.Err for server-side rejections.
func (c *Client) Submit(ctx context.Context, set *Set) (*Result, error) {
	var result Result
	if err := c.api.Post(ctx, "/api/v2/transaction", set, &result); err != nil {
		return nil, fmt.Errorf("submit transaction %s: %w", set.Name, err)
	}
	return &result, nil
}

// Get loads an existing record by its key fields.
func (c *Client) Get(ctx context.Context, req *GetRequest) (map[string]any, error) {
	var result map[string]any
	if err := c.api.Post(ctx, "/api/v2/transaction/get", req, &result); err != nil {
		return nil, fmt.Errorf("get %s record: %w", req.ServiceName, err)
	}
	return result, nil
}

// SubmitAsync queues a transaction set on the async endpoint and returns
// immediately with a request ID.
func (c *Client) SubmitAsync(ctx context.Context, set *Set) (*AsyncStatus, error) {
	var status AsyncStatus
	if err := c.api.Post(ctx, "/api/v2/transaction/async", set, &status); err != nil {
		return nil, fmt.Errorf("submit async transaction %s: %w", set.Name, err)
	}
	return &status, nil
}

// AsyncStatus checks the state of a queued request.
func (c *Client) AsyncStatus(ctx context.Context, requestID string) (*AsyncStatus, error) {
	query := url.Values{}
	query.Set("id", requestID)

	var status AsyncStatus
	if err := c.api.Get(ctx, "/api/v2/transaction/async", query, &status); err != nil {
		return nil, fmt.Errorf("check async status %s: %w", requestID, err)
	}
	return &status, nil
}

// WaitForCompletion polls an async request until it reaches a terminal
// state or the context is done.
func (c *Client) WaitForCompletion(ctx context.Context, requestID string, pollInterval time.Duration) (*AsyncStatus, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.AsyncStatus(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if status.Done() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("async request %s: %w", requestID, ctx.Err())
		case <-ticker.C:
		}
	}
}
