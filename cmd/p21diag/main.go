// Command p21diag measures P21 Transaction API session-pool health.
//
// It fires five timing patterns at the synchronous transaction endpoint,
// classifies each response, and reports per-pattern success rates plus an
// overall conclusion. Results are always written to a JSON file and
// optionally stored in postgres for comparison across runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ifpusa/p21-tools/internal/api"
	"github.com/ifpusa/p21-tools/internal/auth"
	"github.com/ifpusa/p21-tools/internal/config"
	"github.com/ifpusa/p21-tools/internal/database"
	"github.com/ifpusa/p21-tools/internal/diag"
	"github.com/ifpusa/p21-tools/internal/monitor"
	"github.com/ifpusa/p21-tools/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/p21diag.yaml", "path to config file")
	recent := flag.Int("recent", 0, "print the N most recent stored runs and exit")
	watch := flag.Duration("watch", 0, "re-run the diagnostic on this interval (0 = run once)")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting p21diag",
		"version", version.Version,
		"commit", version.Commit,
		"server", cfg.P21.BaseURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *recent > 0 {
		if err := printRecentRuns(ctx, cfg, *recent); err != nil {
			logger.Error("failed to list runs", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *watch, logger); err != nil {
		logger.Error("diagnostic failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, watch time.Duration, logger *slog.Logger) error {
	// Authenticate and discover the uiserver serving the Transaction API.
	authenticator := auth.New(cfg.P21, auth.WithLogger(logger))
	tokens := auth.NewTokenSource(authenticator)

	accessToken, err := tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	uiServerURL, err := authenticator.UIServerURL(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("discover uiserver: %w", err)
	}
	logger.Info("uiserver discovered", "url", uiServerURL)

	// The diagnostic measures raw failures, so the client must not retry.
	clientOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.P21.Timeout),
		api.WithRetries(0, cfg.P21.RetryBackoff),
	}
	if !cfg.P21.VerifySSL {
		clientOpts = append(clientOpts, api.WithInsecureSkipVerify())
	}
	client := api.NewClient(uiServerURL, tokens, clientOpts...)

	prober := diag.NewTransactionProber(client, cfg.Diag.Probe)
	runner := diag.NewRunner(prober,
		diag.WithLogger(logger),
		diag.WithPause(cfg.Diag.PauseBetween),
	)

	if watch > 0 {
		return runWatch(ctx, cfg, runner, watch, logger)
	}

	results, runErr := runner.Run(ctx, cfg.P21.BaseURL, diag.Suite(cfg.Diag))

	for _, pr := range results.Patterns {
		diag.RenderResults(os.Stdout, pr)
	}

	report := diag.Analyze(results)
	diag.RenderReport(os.Stdout, report)

	if err := diag.WriteJSON(cfg.Diag.OutputPath, results); err != nil {
		logger.Error("failed to write results file", "error", err)
	} else {
		logger.Info("results written", "path", cfg.Diag.OutputPath)
	}

	if cfg.Database.Enabled {
		if err := saveRun(ctx, cfg, results, report); err != nil {
			logger.Error("failed to store run", "error", err)
		}
	}

	// A cancelled run still produced the partial report above.
	return runErr
}

// runWatch keeps re-running the suite until interrupted, persisting each
// completed run.
func runWatch(ctx context.Context, cfg *config.Config, runner *diag.Runner, interval time.Duration, logger *slog.Logger) error {
	handler := monitor.ReportHandlerFunc(func(results *diag.RunResults, report *diag.Report) error {
		if err := diag.WriteJSON(cfg.Diag.OutputPath, results); err != nil {
			return err
		}
		if cfg.Database.Enabled {
			return saveRun(ctx, cfg, results, report)
		}
		return nil
	})

	mon := monitor.New(monitor.Config{
		Interval:  interval,
		ServerURL: cfg.P21.BaseURL,
		Patterns:  diag.Suite(cfg.Diag),
	}, runner, handler, logger)

	if err := mon.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return mon.Stop(stopCtx)
}

func saveRun(ctx context.Context, cfg *config.Config, results *diag.RunResults, report *diag.Report) error {
	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := database.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	runID := uuid.New()
	if err := store.SaveRun(ctx, runID, results, report, time.Now()); err != nil {
		return err
	}

	slog.Info("run stored", "run_id", runID)
	return nil
}

func printRecentRuns(ctx context.Context, cfg *config.Config, limit int) error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("database is not enabled in config")
	}

	pool, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := database.NewStore(pool)
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %s  requests=%d failures=%d rate=%.1f%%\n",
			run.RunID,
			run.StartedAt.Format(time.RFC3339),
			run.ServerURL,
			run.TotalRequests,
			run.TotalFailures,
			run.SuccessRate*100,
		)
	}

	return nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
