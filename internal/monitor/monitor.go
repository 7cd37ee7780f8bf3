// Package monitor re-runs the session-pool diagnostic on an interval.
//
// One-off runs show whether the pool is dirty right now; scheduled runs
// show when it goes bad, which is usually after vendor maintenance windows
// or uiserver restarts.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ifpusa/p21-tools/internal/diag"
)

// ReportHandler receives each completed run.
type ReportHandler interface {
	HandleReport(run *diag.RunResults, report *diag.Report) error
}

// ReportHandlerFunc is a function adapter for ReportHandler.
type ReportHandlerFunc func(*diag.RunResults, *diag.Report) error

func (f ReportHandlerFunc) HandleReport(run *diag.RunResults, report *diag.Report) error {
	return f(run, report)
}

// Config holds monitor configuration.
type Config struct {
	Interval  time.Duration // time between diagnostic runs
	ServerURL string        // recorded on each run
	Patterns  []diag.Pattern
}

// Monitor periodically drives a diagnostic runner and hands the analyzed
// report to a handler.
type Monitor struct {
	cfg     Config
	runner  *diag.Runner
	handler ReportHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Monitor.
func New(cfg Config, runner *diag.Runner, handler ReportHandler, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:     cfg,
		runner:  runner,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the monitoring loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("session pool monitor started",
		"interval", m.cfg.Interval,
	)

	return nil
}

// Stop gracefully shuts down the monitor.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("session pool monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main monitoring loop.
func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	m.runOnce()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runOnce()
		}
	}
}

// runOnce executes one diagnostic run and hands off the report.
func (m *Monitor) runOnce() {
	start := time.Now()

	run, err := m.runner.Run(m.ctx, m.cfg.ServerURL, m.cfg.Patterns)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		m.logger.Warn("diagnostic run failed", "err", err)
		return
	}

	report := diag.Analyze(run)

	m.logger.Info("diagnostic run complete",
		"requests", report.TotalRequests,
		"failures", report.TotalFailures,
		"success_rate", report.OverallRate,
		"duration", time.Since(start),
	)

	if m.handler != nil {
		if err := m.handler.HandleReport(run, report); err != nil {
			m.logger.Warn("report handler failed", "err", err)
		}
	}
}
