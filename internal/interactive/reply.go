package interactive

import (
	"context"
	"encoding/json"
	"fmt"
)

// statusBlocked is the numeric status a v2 reply carries while a dialog
// blocks the window.
const statusBlocked = 3

// Reply is the server's answer to a change, tab, row, or save request.
// Status is a string ("Success", "Blocked") on v1 endpoints and a numeric
// code on v2 endpoints, so it stays raw and is interpreted by Blocked.
type Reply struct {
	Status json.RawMessage `json:"Status"`
	Events []Event         `json:"Events"`
}

// Event is a UI event raised by the operation, such as windowopened when
// a dialog appears.
type Event struct {
	Name string      `json:"Name"`
	Data []EventData `json:"Data"`
}

// EventData is one key-value pair attached to an event.
type EventData struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Blocked reports whether a dialog is blocking the window.
func (r *Reply) Blocked() bool {
	if len(r.Status) == 0 {
		return false
	}

	var s string
	if err := json.Unmarshal(r.Status, &s); err == nil {
		return s == "Blocked"
	}

	var n int
	if err := json.Unmarshal(r.Status, &n); err == nil {
		return n == statusBlocked
	}

	return false
}

// ResponseWindowID extracts the dialog window ID from a blocked reply,
// or "" when no dialog opened. Only populated when the session was started
// with response-window handling enabled.
func (r *Reply) ResponseWindowID() string {
	if !r.Blocked() {
		return ""
	}

	for _, event := range r.Events {
		if event.Name != "windowopened" {
			continue
		}
		for _, item := range event.Data {
			if item.Key == "windowid" {
				return item.Value
			}
		}
	}

	return ""
}

// AnswerResponseWindow presses a button ("Yes", "No", "OK") on a dialog
// surfaced by a blocked reply.
func (s *Session) AnswerResponseWindow(ctx context.Context, dialogID, button string) error {
	body := map[string]string{
		"ResponseWindowId": dialogID,
		"Button":           button,
	}

	if err := s.api.Post(ctx, "/api/ui/interactive/v2/responsewindow", body, nil); err != nil {
		return fmt.Errorf("answer response window %s: %w", dialogID, err)
	}

	s.logger.Debug("response window answered",
		"dialog_id", dialogID,
		"button", button,
	)
	return nil
}
