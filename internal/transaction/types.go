package transaction

import (
	"encoding/json"
	"fmt"
)

// Set is a Transaction API payload: one service name plus the transactions
// to apply against it.
type Set struct {
	Name          string        `json:"Name"`
	UseCodeValues bool          `json:"UseCodeValues"`
	Transactions  []Transaction `json:"Transactions"`
}

// Transaction is a single record operation within a Set.
// Status is "New" for both creates and updates; the server decides based on
// the key edits present.
type Transaction struct {
	Status       string        `json:"Status,omitempty"`
	DataElements []DataElement `json:"DataElements"`
}

// DataElement maps to a window section (form, tab, grid).
type DataElement struct {
	Name string   `json:"Name"`
	Type string   `json:"Type"`
	Keys []string `json:"Keys"`
	Rows []Row    `json:"Rows"`
}

// Row carries the field edits for one row of a data element.
type Row struct {
	Edits             []Edit `json:"Edits"`
	RelativeDateEdits []Edit `json:"RelativeDateEdits"`
}

// Edit sets a single field. Value is any because the vendor accepts both
// strings and numbers, and some fields (supplier_id) only accept floats.
type Edit struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// NewRow builds a row from edits with an empty RelativeDateEdits slice,
// which the vendor requires to be present.
func NewRow(edits ...Edit) Row {
	return Row{
		Edits:             edits,
		RelativeDateEdits: []Edit{},
	}
}

// FormElement builds a Form-typed data element with a single row.
func FormElement(name string, row Row) DataElement {
	return DataElement{
		Name: name,
		Type: "Form",
		Keys: []string{},
		Rows: []Row{row},
	}
}

// Summary counts transaction outcomes within a Result.
type Summary struct {
	Succeeded int `json:"Succeeded"`
	Failed    int `json:"Failed"`
}

// Result is the Transaction API response. An HTTP 200 with Failed > 0 is a
// validation failure, not a success.
type Result struct {
	Summary  Summary           `json:"Summary"`
	Messages []json.RawMessage `json:"Messages"`
	Results  []json.RawMessage `json:"Results"`
}

// OK reports whether every transaction in the set succeeded.
func (r *Result) OK() bool {
	return r.Summary.Succeeded > 0 && r.Summary.Failed == 0
}

// FirstMessage returns the first server message as text, or "" if none.
func (r *Result) FirstMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Messages[0], &s); err == nil {
		return s
	}
	return string(r.Messages[0])
}

// Err returns a ValidationError when the result reports failures.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{
		Failed:  r.Summary.Failed,
		Message: r.FirstMessage(),
	}
}

// ValidationError is a server-side rejection of a submitted transaction.
type ValidationError struct {
	Failed  int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transaction failed: %d transaction(s) rejected", e.Failed)
	}
	return fmt.Sprintf("transaction failed: %s", e.Message)
}

// ServiceInfo describes one service exposed by the Transaction API.
// The list endpoint returns either objects with a Name field or bare
// strings depending on server version.
type ServiceInfo struct {
	Name string `json:"Name"`
}

func (s *ServiceInfo) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		s.Name = name
		return nil
	}

	type alias ServiceInfo
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = ServiceInfo(obj)
	return nil
}

// KeyValue identifies a record field for transaction/get lookups.
type KeyValue struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// TransactionState selects a record by data element keys.
type TransactionState struct {
	DataElementName string     `json:"DataElementName"`
	Keys            []KeyValue `json:"Keys"`
}

// GetRequest loads an existing record through POST /api/v2/transaction/get.
type GetRequest struct {
	ServiceName       string             `json:"ServiceName"`
	TransactionStates []TransactionState `json:"TransactionStates"`
}

// AsyncStatusComplete and friends are the states reported for async requests.
const (
	AsyncStatusComplete = "Complete"
	AsyncStatusFailed   = "Failed"
)

// AsyncStatus is the state of an async transaction request.
type AsyncStatus struct {
	RequestID string          `json:"RequestId"`
	Status    string          `json:"Status"`
	Result    json.RawMessage `json:"Result"`
}

// Done reports whether the request reached a terminal state.
func (s *AsyncStatus) Done() bool {
	return s.Status == AsyncStatusComplete || s.Status == AsyncStatusFailed
}
