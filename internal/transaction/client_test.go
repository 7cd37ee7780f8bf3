package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifpusa/p21-tools/internal/api"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(api.NewClient(server.URL, api.StaticToken("tok")))
}

func TestServices(t *testing.T) {
	t.Run("bare array of objects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v2/services" {
				t.Errorf("path = %q", r.URL.Path)
			}
			fmt.Fprint(w, `[{"Name":"Order"},{"Name":"Customer"}]`)
		}))
		defer server.Close()

		services, err := newTestClient(server).Services(context.Background())
		if err != nil {
			t.Fatalf("Services failed: %v", err)
		}
		if len(services) != 2 || services[0].Name != "Order" {
			t.Errorf("services = %+v", services)
		}
	})

	t.Run("wrapped value array of strings", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"value":["Order","Customer","Item"]}`)
		}))
		defer server.Close()

		services, err := newTestClient(server).Services(context.Background())
		if err != nil {
			t.Fatalf("Services failed: %v", err)
		}
		if len(services) != 3 || services[2].Name != "Item" {
			t.Errorf("services = %+v", services)
		}
	})
}

func TestDefinition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/definition/Order" {
			t.Errorf("path = %q, want /api/v2/definition/Order", r.URL.Path)
		}
		fmt.Fprint(w, `{"Name":"Order","DataElements":[]}`)
	}))
	defer server.Close()

	def, err := newTestClient(server).Definition(context.Background(), "Order")
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if def["Name"] != "Order" {
		t.Errorf("def = %v", def)
	}
}

func TestSubmit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotSet Set
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/v2/transaction" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&gotSet); err != nil {
				t.Errorf("decode body: %v", err)
			}
			fmt.Fprint(w, `{"Summary":{"Succeeded":1,"Failed":0}}`)
		}))
		defer server.Close()

		set := &Set{
			Name: "SalesPricePage",
			Transactions: []Transaction{{
				Status: "New",
				DataElements: []DataElement{
					FormElement("FORM.form", NewRow(Edit{Name: "company_id", Value: "ACME"})),
				},
			}},
		}

		result, err := newTestClient(server).Submit(context.Background(), set)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if !result.OK() {
			t.Errorf("result = %+v, want success", result)
		}
		if gotSet.Name != "SalesPricePage" {
			t.Errorf("submitted set name = %q", gotSet.Name)
		}
	})

	t.Run("200 with failures is not OK", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"Summary":{"Succeeded":0,"Failed":1},"Messages":["bad field"]}`)
		}))
		defer server.Close()

		result, err := newTestClient(server).Submit(context.Background(), &Set{Name: "X"})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.OK() {
			t.Error("HTTP 200 with Failed > 0 must not be OK")
		}
		if result.Err() == nil {
			t.Error("Err() should report the validation failure")
		}
	})
}

func TestGet(t *testing.T) {
	var gotReq GetRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/transaction/get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"Name":"Supplier"}`)
	}))
	defer server.Close()

	req := &GetRequest{
		ServiceName: "Supplier",
		TransactionStates: []TransactionState{{
			DataElementName: "FORM.form",
			Keys:            []KeyValue{{Name: "supplier_id", Value: "10"}},
		}},
	}

	record, err := newTestClient(server).Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record["Name"] != "Supplier" {
		t.Errorf("record = %v", record)
	}
	if gotReq.TransactionStates[0].Keys[0].Name != "supplier_id" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestWaitForCompletion(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/transaction/async":
			if r.Method == http.MethodPost {
				fmt.Fprint(w, `{"RequestId":"req-1","Status":"Pending"}`)
				return
			}
			polls++
			if r.URL.Query().Get("id") != "req-1" {
				t.Errorf("id = %q, want req-1", r.URL.Query().Get("id"))
			}
			if polls < 3 {
				fmt.Fprint(w, `{"RequestId":"req-1","Status":"Processing"}`)
			} else {
				fmt.Fprint(w, `{"RequestId":"req-1","Status":"Complete"}`)
			}
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)

	status, err := client.SubmitAsync(context.Background(), &Set{Name: "X"})
	if err != nil {
		t.Fatalf("SubmitAsync failed: %v", err)
	}
	if status.RequestID != "req-1" {
		t.Fatalf("RequestID = %q, want req-1", status.RequestID)
	}

	final, err := client.WaitForCompletion(context.Background(), status.RequestID, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForCompletion failed: %v", err)
	}
	if final.Status != AsyncStatusComplete {
		t.Errorf("Status = %q, want Complete", final.Status)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWaitForCompletionCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"RequestId":"req-1","Status":"Processing"}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server).WaitForCompletion(ctx, "req-1", 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected error when the context expires")
	}
}
