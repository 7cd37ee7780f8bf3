package odata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ifpusa/p21-tools/internal/api"
)

func TestQueryValues(t *testing.T) {
	t.Run("all options", func(t *testing.T) {
		q := Query{
			Select:  []string{"supplier_id", "supplier_name"},
			Filter:  "delete_flag eq 'N'",
			OrderBy: "supplier_id desc",
			Top:     25,
			Skip:    50,
			Count:   true,
		}
		v := q.Values()

		if got := v.Get("$select"); got != "supplier_id,supplier_name" {
			t.Errorf("$select = %q", got)
		}
		if got := v.Get("$filter"); got != "delete_flag eq 'N'" {
			t.Errorf("$filter = %q", got)
		}
		if got := v.Get("$orderby"); got != "supplier_id desc" {
			t.Errorf("$orderby = %q", got)
		}
		if got := v.Get("$top"); got != "25" {
			t.Errorf("$top = %q", got)
		}
		if got := v.Get("$skip"); got != "50" {
			t.Errorf("$skip = %q", got)
		}
		if got := v.Get("$count"); got != "true" {
			t.Errorf("$count = %q", got)
		}
	})

	t.Run("zero values omitted", func(t *testing.T) {
		v := Query{}.Values()
		if len(v) != 0 {
			t.Errorf("empty query produced %d parameters: %v", len(v), v)
		}
	})
}

func TestEscapeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ACME", "ACME"},
		{"O'Brien", "O''Brien"},
		{"a'b'c", "a''b''c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := EscapeString(tt.in); got != tt.want {
			t.Errorf("EscapeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/table/supplier" {
			t.Errorf("path = %q, want /table/supplier", r.URL.Path)
		}
		if got := r.URL.Query().Get("$top"); got != "5" {
			t.Errorf("$top = %q, want 5", got)
		}
		fmt.Fprint(w, `{"@odata.count":240,"value":[{"supplier_id":1},{"supplier_id":2}]}`)
	}))
	defer server.Close()

	client := NewClient(api.NewClient(server.URL, api.StaticToken("tok")))

	page, err := client.Table(context.Background(), "supplier", Query{Top: 5, Count: true})
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	if len(page.Value) != 2 {
		t.Errorf("rows = %d, want 2", len(page.Value))
	}
	if page.TotalCount() != 240 {
		t.Errorf("TotalCount() = %d, want 240", page.TotalCount())
	}
}

func TestTotalCountAbsent(t *testing.T) {
	var r Result
	if err := json.Unmarshal([]byte(`{"value":[]}`), &r); err != nil {
		t.Fatal(err)
	}
	if r.TotalCount() != -1 {
		t.Errorf("TotalCount() = %d, want -1 when the server omits it", r.TotalCount())
	}
}

func TestAllRows(t *testing.T) {
	t.Run("paginates using the server count", func(t *testing.T) {
		const total = 7
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			top, _ := strconv.Atoi(r.URL.Query().Get("$top"))
			skip, _ := strconv.Atoi(r.URL.Query().Get("$skip"))

			var rows []map[string]any
			for i := skip; i < total && i < skip+top; i++ {
				rows = append(rows, map[string]any{"id": i})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"@odata.count": total,
				"value":        rows,
			})
		}))
		defer server.Close()

		client := NewClient(api.NewClient(server.URL, api.StaticToken("tok")))

		rows, err := client.AllRows(context.Background(), "supplier", Query{Top: 3})
		if err != nil {
			t.Fatalf("AllRows failed: %v", err)
		}
		if len(rows) != total {
			t.Errorf("rows = %d, want %d", len(rows), total)
		}
	})

	t.Run("stops on short page without a count", func(t *testing.T) {
		var requests int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			skip, _ := strconv.Atoi(r.URL.Query().Get("$skip"))

			rows := []map[string]any{}
			if skip == 0 {
				rows = []map[string]any{{"id": 0}, {"id": 1}, {"id": 2}}
			} else if skip == 3 {
				rows = []map[string]any{{"id": 3}}
			}
			json.NewEncoder(w).Encode(map[string]any{"value": rows})
		}))
		defer server.Close()

		client := NewClient(api.NewClient(server.URL, api.StaticToken("tok")))

		rows, err := client.AllRows(context.Background(), "supplier", Query{Top: 3})
		if err != nil {
			t.Fatalf("AllRows failed: %v", err)
		}
		if len(rows) != 4 {
			t.Errorf("rows = %d, want 4", len(rows))
		}
		if requests != 2 {
			t.Errorf("requests = %d, want 2 (short second page ends the scan)", requests)
		}
	})
}
