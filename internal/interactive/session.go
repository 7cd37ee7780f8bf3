// Package interactive wraps the P21 Interactive API: stateful UI sessions
// that open windows, edit fields, and save, exactly like a logged-in user.
//
// Sessions hold server resources. Always End a started session, including
// on error paths; leaked sessions are what dirty the server's session pool.
package interactive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ifpusa/p21-tools/internal/api"
)

// Session manages one Interactive API session on a uiserver root.
type Session struct {
	api    *api.Client
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession wraps an api.Client rooted at the uiserver base URL.
func NewSession(apiClient *api.Client, opts ...Option) *Session {
	s := &Session{
		api:    apiClient,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the session. With handleResponseWindows false the server
// auto-answers dialogs with their default button (usually "Yes"); with true
// the dialog is surfaced as a windowopened event for the caller to answer.
func (s *Session) Start(ctx context.Context, handleResponseWindows bool) error {
	body := map[string]bool{
		"ResponseWindowHandlingEnabled": handleResponseWindows,
	}
	if err := s.api.Post(ctx, "/api/ui/interactive/sessions/", body, nil); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.logger.Debug("interactive session started",
		"response_window_handling", handleResponseWindows,
	)
	return nil
}

// List returns all open sessions for the authenticated user.
func (s *Session) List(ctx context.Context) ([]map[string]any, error) {
	var sessions []map[string]any
	if err := s.api.Get(ctx, "/api/ui/interactive/sessions/", nil, &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// End closes the session and frees its server resources.
func (s *Session) End(ctx context.Context) error {
	if err := s.api.Delete(ctx, "/api/ui/interactive/sessions/", nil, nil); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	s.logger.Debug("interactive session ended")
	return nil
}

// Run starts a session, invokes fn, and ends the session even when fn
// fails or the context is cancelled mid-flight.
func (s *Session) Run(ctx context.Context, handleResponseWindows bool, fn func(context.Context) error) error {
	if err := s.Start(ctx, handleResponseWindows); err != nil {
		return err
	}

	defer func() {
		// Teardown must proceed even after cancellation.
		endCtx := context.WithoutCancel(ctx)
		if err := s.End(endCtx); err != nil {
			s.logger.Warn("failed to end session", "error", err)
		}
	}()

	return fn(ctx)
}
