// Package odata wraps the P21 OData API for read-only table queries.
package odata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ifpusa/p21-tools/internal/api"
)

// Client queries the OData service root.
type Client struct {
	api *api.Client
}

// NewClient wraps an api.Client rooted at {base}/odataservice/odata.
func NewClient(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Query holds OData system query options.
type Query struct {
	Select  []string // $select columns
	Filter  string   // $filter expression
	OrderBy string   // $orderby expression
	Top     int      // $top, 0 = unset
	Skip    int      // $skip, 0 = unset
	Count   bool     // $count=true
}

// Values encodes the query options as URL parameters.
func (q Query) Values() url.Values {
	values := url.Values{}

	if len(q.Select) > 0 {
		values.Set("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		values.Set("$orderby", q.OrderBy)
	}
	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}
	if q.Skip > 0 {
		values.Set("$skip", strconv.Itoa(q.Skip))
	}
	if q.Count {
		values.Set("$count", "true")
	}

	return values
}

// Result is an OData response page.
type Result struct {
	Context string           `json:"@odata.context"`
	Count   *int64           `json:"@odata.count"`
	Value   []map[string]any `json:"value"`
}

// TotalCount returns the @odata.count value, or -1 when the server did not
// include one.
func (r *Result) TotalCount() int64 {
	if r.Count == nil {
		return -1
	}
	return *r.Count
}

// Table fetches one page of rows from a table.
func (c *Client) Table(ctx context.Context, name string, q Query) (*Result, error) {
	var result Result
	if err := c.api.Get(ctx, "/table/"+name, q.Values(), &result); err != nil {
		return nil, fmt.Errorf("query table %s: %w", name, err)
	}
	return &result, nil
}

// DefaultPageSize is the page size used by AllRows when Top is unset.
const DefaultPageSize = 100

// AllRows fetches every row matching the query by paginating with $skip.
func (c *Client) AllRows(ctx context.Context, name string, q Query) ([]map[string]any, error) {
	pageSize := q.Top
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	q.Top = pageSize
	q.Skip = 0
	q.Count = true

	var rows []map[string]any
	for {
		page, err := c.Table(ctx, name, q)
		if err != nil {
			return nil, err
		}

		rows = append(rows, page.Value...)

		if total := page.TotalCount(); total >= 0 {
			if int64(len(rows)) >= total {
				break
			}
		} else if len(page.Value) < pageSize {
			// Server did not report a count; a short page ends the scan.
			break
		}

		q.Skip += pageSize
	}

	return rows, nil
}

// EscapeString escapes single quotes in an OData string literal.
func EscapeString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
