package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifpusa/p21-tools/internal/api"
	"github.com/ifpusa/p21-tools/internal/config"
	"github.com/ifpusa/p21-tools/internal/transaction"
)

var testProbe = config.ProbeConfig{
	CompanyID:      "ACME",
	SupplierID:     100172,
	ProductGroupID: "FA5",
	Multiplier:     0.5,
}

func newProber(server *httptest.Server) *TransactionProber {
	client := api.NewClient(server.URL, api.StaticToken("tok"),
		api.WithRetries(0, time.Millisecond))
	return NewTransactionProber(client, testProbe)
}

func TestBuildProbeSet(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 5, 123456000, time.UTC)
	set := BuildProbeSet(testProbe, now)

	if set.Name != "SalesPricePage" {
		t.Errorf("Name = %q", set.Name)
	}
	if len(set.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(set.Transactions))
	}

	tx := set.Transactions[0]
	if tx.Status != "New" {
		t.Errorf("Status = %q, want New", tx.Status)
	}
	if len(tx.DataElements) != 2 {
		t.Fatalf("data elements = %d, want 2", len(tx.DataElements))
	}

	form := tx.DataElements[0]
	if form.Name != "FORM.form" || form.Type != "Form" {
		t.Errorf("form element = %+v", form)
	}

	edits := map[string]any{}
	for _, edit := range form.Rows[0].Edits {
		edits[edit.Name] = edit.Value
	}
	if edits["company_id"] != "ACME" {
		t.Errorf("company_id = %v", edits["company_id"])
	}
	if edits["supplier_id"] != float64(100172) {
		t.Errorf("supplier_id = %v (%T), must stay numeric", edits["supplier_id"], edits["supplier_id"])
	}
	desc, _ := edits["description"].(string)
	if len(desc) == 0 || desc[:13] != "SESSION-TEST-" {
		t.Errorf("description = %q, want SESSION-TEST- prefix", desc)
	}

	values := tx.DataElements[1]
	if values.Name != "VALUES.values" {
		t.Errorf("values element = %q", values.Name)
	}
	valueEdits := map[string]any{}
	for _, edit := range values.Rows[0].Edits {
		valueEdits[edit.Name] = edit.Value
	}
	if valueEdits["calculation_value1"] != "0.5" {
		t.Errorf("calculation_value1 = %v", valueEdits["calculation_value1"])
	}

	// Distinct timestamps produce distinct descriptions.
	later := BuildProbeSet(testProbe, now.Add(time.Second))
	laterDesc := later.Transactions[0].DataElements[0].Rows[0].Edits[4].Value
	if laterDesc == edits["description"] {
		t.Error("descriptions should differ across probes")
	}
}

func TestProbeClassification(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v2/transaction" {
				t.Errorf("path = %q", r.URL.Path)
			}
			var set transaction.Set
			if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
				t.Errorf("decode probe payload: %v", err)
			}
			w.Header().Set("X-P21-SessionId", "s-7")
			fmt.Fprint(w, `{"Summary":{"Succeeded":1,"Failed":0}}`)
		}))
		defer server.Close()

		outcome := newProber(server).Probe(context.Background())

		if !outcome.Success {
			t.Errorf("outcome = %+v, want success", outcome)
		}
		if outcome.StatusCode != 200 {
			t.Errorf("StatusCode = %d", outcome.StatusCode)
		}
		if outcome.SessionHeaders["X-P21-Sessionid"] != "s-7" {
			t.Errorf("SessionHeaders = %v, session header should be captured", outcome.SessionHeaders)
		}
	})

	t.Run("200 with failed summary is a validation error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Summary":{"Succeeded":0,"Failed":1},"Messages":["price page exists"]}`)
		}))
		defer server.Close()

		outcome := newProber(server).Probe(context.Background())

		if outcome.Success {
			t.Error("200 with Failed > 0 must not be a success")
		}
		if outcome.ErrorType != ErrTypeValidation {
			t.Errorf("ErrorType = %q, want %q", outcome.ErrorType, ErrTypeValidation)
		}
		if outcome.ErrorMessage != "price page exists" {
			t.Errorf("ErrorMessage = %q", outcome.ErrorMessage)
		}
	})

	t.Run("contaminated error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"Message":"Unexpected response window encountered: Question"}`, http.StatusBadRequest)
		}))
		defer server.Close()

		outcome := newProber(server).Probe(context.Background())

		if outcome.ErrorType != ErrTypeUnexpectedWindow {
			t.Errorf("ErrorType = %q, want %q", outcome.ErrorType, ErrTypeUnexpectedWindow)
		}
		if outcome.StatusCode != 400 {
			t.Errorf("StatusCode = %d, want 400", outcome.StatusCode)
		}
	})

	t.Run("plain http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		outcome := newProber(server).Probe(context.Background())

		if outcome.ErrorType != ErrTypeHTTP {
			t.Errorf("ErrorType = %q, want %q", outcome.ErrorType, ErrTypeHTTP)
		}
		if outcome.StatusCode != 503 {
			t.Errorf("StatusCode = %d, want 503", outcome.StatusCode)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused

		outcome := newProber(server).Probe(context.Background())

		if outcome.ErrorType != ErrTypeTransport {
			t.Errorf("ErrorType = %q, want %q", outcome.ErrorType, ErrTypeTransport)
		}
	})
}

func TestCaptureSessionHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-P21-SessionId", "s-1")
	headers.Set("Server", "Microsoft-IIS/10.0")
	headers.Set("X-Instance-Id", "node-3")
	headers.Set("Date", "Tue, 25 Aug 2026 14:00:00 GMT")

	captured := captureSessionHeaders(headers)

	if len(captured) != 3 {
		t.Errorf("captured = %v, want 3 entries", captured)
	}
	if _, ok := captured["Content-Type"]; ok {
		t.Error("Content-Type should not be captured")
	}
	if captured["Server"] != "Microsoft-IIS/10.0" {
		t.Errorf("Server = %q", captured["Server"])
	}

	if got := captureSessionHeaders(nil); got != nil {
		t.Errorf("nil headers should capture nil, got %v", got)
	}
	if got := captureSessionHeaders(http.Header{"Date": {"x"}}); got != nil {
		t.Errorf("no matching headers should capture nil, got %v", got)
	}
}
