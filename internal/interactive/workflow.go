package interactive

import (
	"context"
	"fmt"
)

// TabChanges groups field changes applied on one tab of a window.
// An empty Tab means the window's current tab.
type TabChanges struct {
	Tab     string
	Changes []FieldChange
}

// CreateRecord runs the standard entry workflow: open the service's window,
// apply each group of changes in order (switching tabs as needed), save,
// and close. The window is closed even when a step fails, so a broken
// workflow does not leave a dialog behind in the session.
func (s *Session) CreateRecord(ctx context.Context, serviceName string, groups []TabChanges) error {
	window, err := s.OpenWindow(ctx, serviceName)
	if err != nil {
		return err
	}

	saved := false
	defer func() {
		if saved {
			return
		}
		if err := window.Close(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to close window after error",
				"window_id", window.ID,
				"error", err,
			)
		}
	}()

	for _, group := range groups {
		if group.Tab != "" {
			if _, err := window.SelectTab(ctx, group.Tab); err != nil {
				return err
			}
		}

		reply, err := window.ChangeMultiple(ctx, group.Changes)
		if err != nil {
			return err
		}
		if reply.Blocked() {
			return fmt.Errorf("change blocked by dialog in window %s (dialog %q)", window.ID, reply.ResponseWindowID())
		}
	}

	reply, err := window.Save(ctx)
	if err != nil {
		return err
	}
	if reply.Blocked() {
		return fmt.Errorf("save blocked by dialog in window %s (dialog %q)", window.ID, reply.ResponseWindowID())
	}

	if err := window.Close(ctx); err != nil {
		return err
	}
	saved = true

	return nil
}
