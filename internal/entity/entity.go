// Package entity wraps the P21 Entity API: CRUD on domain objects such as
// customers, orders, and suppliers, served under the main API root.
package entity

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ifpusa/p21-tools/internal/api"
)

// Endpoint is a known Entity API endpoint.
type Endpoint struct {
	Name string
	Path string
}

// KnownEndpoints lists the Entity API endpoints present on standard
// installs. Custom installs may expose more.
var KnownEndpoints = []Endpoint{
	{Name: "Sales - Customers", Path: "/api/sales/customers"},
	{Name: "Sales - Orders", Path: "/api/sales/orders"},
	{Name: "Sales - Invoices", Path: "/api/sales/invoices"},
	{Name: "Sales - Quotes", Path: "/api/sales/quotes"},
	{Name: "Inventory - Parts", Path: "/api/inventory/parts"},
	{Name: "Purchasing - Suppliers", Path: "/api/purchasing/suppliers"},
	{Name: "Purchasing - PurchaseOrders", Path: "/api/purchasing/purchaseorders"},
	{Name: "Contacts", Path: "/api/contacts"},
}

// Client calls the Entity API on the main API root.
type Client struct {
	api *api.Client
}

// NewClient wraps an api.Client rooted at the P21 base URL.
func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// List fetches up to top records from an endpoint. The Entity API returns
// either a bare array or a single object for singleton endpoints, so rows
// stay untyped.
func (c *Client) List(ctx context.Context, endpoint string, top int) ([]map[string]any, error) {
	query := url.Values{}
	if top > 0 {
		query.Set("$top", strconv.Itoa(top))
	}

	var rows []map[string]any
	if err := c.api.Get(ctx, endpoint, query, &rows); err != nil {
		return nil, fmt.Errorf("list %s: %w", endpoint, err)
	}
	return rows, nil
}

// Get fetches one record by ID.
func (c *Client) Get(ctx context.Context, endpoint, id string) (map[string]any, error) {
	var record map[string]any
	if err := c.api.Get(ctx, endpoint+"/"+id, nil, &record); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", endpoint, id, err)
	}
	return record, nil
}

// GetExtended fetches one record including the named extended properties.
func (c *Client) GetExtended(ctx context.Context, endpoint, id string, props []string) (map[string]any, error) {
	query := url.Values{}
	query.Set("extendedproperties", strings.Join(props, ","))

	var record map[string]any
	if err := c.api.Get(ctx, endpoint+"/"+id, query, &record); err != nil {
		return nil, fmt.Errorf("get %s/%s extended: %w", endpoint, id, err)
	}
	return record, nil
}

// New fetches an empty template record showing the endpoint's fields.
func (c *Client) New(ctx context.Context, endpoint string) (map[string]any, error) {
	var template map[string]any
	if err := c.api.Get(ctx, endpoint+"/new", nil, &template); err != nil {
		return nil, fmt.Errorf("get %s template: %w", endpoint, err)
	}
	return template, nil
}

// Query filters an endpoint with the Entity API's $query syntax.
func (c *Client) Query(ctx context.Context, endpoint, query string, top int) ([]map[string]any, error) {
	values := url.Values{}
	values.Set("$query", query)
	if top > 0 {
		values.Set("$top", strconv.Itoa(top))
	}

	var rows []map[string]any
	if err := c.api.Get(ctx, endpoint, values, &rows); err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	return rows, nil
}

// Update posts a full record back to an endpoint. The Entity API uses POST
// for both create and update; the record's key fields decide which happens.
func (c *Client) Update(ctx context.Context, endpoint string, record map[string]any) (map[string]any, error) {
	var result map[string]any
	if err := c.api.Post(ctx, endpoint, record, &result); err != nil {
		return nil, fmt.Errorf("update %s: %w", endpoint, err)
	}
	return result, nil
}

// ProbeResult reports whether one known endpoint answered.
type ProbeResult struct {
	Endpoint  Endpoint
	Available bool
	Err       error
}

// Probe checks which known endpoints respond on this install.
func (c *Client) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(KnownEndpoints))

	for _, ep := range KnownEndpoints {
		_, err := c.List(ctx, ep.Path, 1)
		results = append(results, ProbeResult{
			Endpoint:  ep,
			Available: err == nil,
			Err:       err,
		})
	}

	return results
}
