package interactive

import (
	"context"
	"fmt"
	"net/url"
)

// OpenRequest selects the window to open, by service name or by title.
type OpenRequest struct {
	ServiceName string `json:"ServiceName,omitempty"`
	Title       string `json:"Title,omitempty"`
}

// WindowState is the server's description of an open window.
type WindowState struct {
	WindowID     string        `json:"WindowId"`
	Title        string        `json:"Title"`
	DataElements []DataElement `json:"DataElements"`
}

// DataElement names a section of a window (form, tab, grid).
type DataElement struct {
	Name string `json:"Name"`
	Type string `json:"Type"`
}

// Window is a handle to an open window within a session.
type Window struct {
	ID      string
	Title   string
	State   *WindowState
	session *Session
}

// OpenWindow opens a P21 window by service name.
func (s *Session) OpenWindow(ctx context.Context, serviceName string) (*Window, error) {
	return s.open(ctx, OpenRequest{ServiceName: serviceName})
}

// OpenWindowByTitle opens a P21 window by its display title.
func (s *Session) OpenWindowByTitle(ctx context.Context, title string) (*Window, error) {
	return s.open(ctx, OpenRequest{Title: title})
}

func (s *Session) open(ctx context.Context, req OpenRequest) (*Window, error) {
	var state WindowState
	if err := s.api.Post(ctx, "/api/ui/interactive/v2/window", req, &state); err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	if state.WindowID == "" {
		return nil, fmt.Errorf("open window: response missing WindowId")
	}

	s.logger.Debug("window opened",
		"window_id", state.WindowID,
		"title", state.Title,
	)

	return &Window{
		ID:      state.WindowID,
		Title:   state.Title,
		State:   &state,
		session: s,
	}, nil
}

// Refresh reloads the window state from the server.
func (w *Window) Refresh(ctx context.Context) (*WindowState, error) {
	query := url.Values{}
	query.Set("windowId", w.ID)

	var state WindowState
	if err := w.session.api.Get(ctx, "/api/ui/interactive/v2/window", query, &state); err != nil {
		return nil, fmt.Errorf("get window %s: %w", w.ID, err)
	}

	w.State = &state
	return &state, nil
}

// Close closes the window without saving.
func (w *Window) Close(ctx context.Context) error {
	query := url.Values{}
	query.Set("windowId", w.ID)

	if err := w.session.api.Delete(ctx, "/api/ui/interactive/v2/window", query, nil); err != nil {
		return fmt.Errorf("close window %s: %w", w.ID, err)
	}

	w.session.logger.Debug("window closed", "window_id", w.ID)
	return nil
}

// FieldChange sets one field in a named datawindow. The datawindow and
// field names come from the window's SQL Information dialog in P21.
type FieldChange struct {
	DataWindowName string `json:"DataWindowName"`
	FieldName      string `json:"FieldName"`
	Value          string `json:"Value"`
}

// Change sets a single field.
func (w *Window) Change(ctx context.Context, dataWindow, field, value string) (*Reply, error) {
	return w.ChangeMultiple(ctx, []FieldChange{{
		DataWindowName: dataWindow,
		FieldName:      field,
		Value:          value,
	}})
}

// ChangeMultiple applies several field changes in order. Order matters:
// some fields only become editable after earlier fields are set.
func (w *Window) ChangeMultiple(ctx context.Context, changes []FieldChange) (*Reply, error) {
	body := map[string]any{
		"WindowId":       w.ID,
		"ChangeRequests": changes,
	}

	var reply Reply
	if err := w.session.api.Put(ctx, "/api/ui/interactive/v1/change", body, &reply); err != nil {
		return nil, fmt.Errorf("change data in window %s: %w", w.ID, err)
	}
	return &reply, nil
}

// SelectTab switches the window to a named tab page.
func (w *Window) SelectTab(ctx context.Context, pageName string) (*Reply, error) {
	body := map[string]any{
		"WindowId": w.ID,
		"PagePath": map[string]string{"PageName": pageName},
	}

	var reply Reply
	if err := w.session.api.Put(ctx, "/api/ui/interactive/v1/tab", body, &reply); err != nil {
		return nil, fmt.Errorf("select tab %s in window %s: %w", pageName, w.ID, err)
	}
	return &reply, nil
}

// SelectRow moves the current row of a datawindow (1-based).
func (w *Window) SelectRow(ctx context.Context, dataWindow string, row int) (*Reply, error) {
	body := map[string]any{
		"WindowId":       w.ID,
		"DatawindowName": dataWindow,
		"Row":            row,
	}

	var reply Reply
	if err := w.session.api.Put(ctx, "/api/ui/interactive/v2/row", body, &reply); err != nil {
		return nil, fmt.Errorf("select row in window %s: %w", w.ID, err)
	}
	return &reply, nil
}

// Data returns the window's current field values.
func (w *Window) Data(ctx context.Context) (map[string]any, error) {
	query := url.Values{}
	query.Set("windowId", w.ID)

	var data map[string]any
	if err := w.session.api.Get(ctx, "/api/ui/interactive/v1/data", query, &data); err != nil {
		return nil, fmt.Errorf("get data from window %s: %w", w.ID, err)
	}
	return data, nil
}

// Save commits the window's pending changes.
func (w *Window) Save(ctx context.Context) (*Reply, error) {
	body := map[string]string{"WindowId": w.ID}

	var reply Reply
	if err := w.session.api.Put(ctx, "/api/ui/interactive/v1/data", body, &reply); err != nil {
		return nil, fmt.Errorf("save window %s: %w", w.ID, err)
	}
	return &reply, nil
}
