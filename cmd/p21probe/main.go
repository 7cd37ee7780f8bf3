// Command p21probe smoke-tests a P21 server's four integration APIs.
//
// Connection settings come from the environment (or a .env file):
// P21_BASE_URL, P21_USERNAME, P21_PASSWORD, P21_VERIFY_SSL. Every call is
// read-only except the Interactive session open/close.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ifpusa/p21-tools/internal/api"
	"github.com/ifpusa/p21-tools/internal/auth"
	"github.com/ifpusa/p21-tools/internal/config"
	"github.com/ifpusa/p21-tools/internal/entity"
	"github.com/ifpusa/p21-tools/internal/interactive"
	"github.com/ifpusa/p21-tools/internal/odata"
	"github.com/ifpusa/p21-tools/internal/transaction"
	"github.com/ifpusa/p21-tools/internal/version"
)

func main() {
	table := flag.String("table", "supplier", "OData table to query")
	service := flag.String("service", "Order", "Transaction API service to describe")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting p21probe", "version", version.Version)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("failed to load environment", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := probe(ctx, *cfg, *table, *service, logger); err != nil {
		logger.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func probe(ctx context.Context, cfg config.P21Config, table, service string, logger *slog.Logger) error {
	authenticator := auth.New(cfg, auth.WithLogger(logger))
	tokens := auth.NewTokenSource(authenticator)

	accessToken, err := tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	fmt.Printf("Server: %s\n", cfg.BaseURL)
	fmt.Println("Authentication: OK")

	uiServerURL, err := authenticator.UIServerURL(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("discover uiserver: %w", err)
	}
	fmt.Printf("UI Server: %s\n", uiServerURL)

	clientOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.Timeout),
		api.WithRetries(cfg.MaxRetries, cfg.RetryBackoff),
	}
	if !cfg.VerifySSL {
		clientOpts = append(clientOpts, api.WithInsecureSkipVerify())
	}

	baseClient := api.NewClient(cfg.BaseURL, tokens, clientOpts...)
	odataClient := odata.NewClient(api.NewClient(cfg.ODataURL(), tokens, clientOpts...))
	uiClient := api.NewClient(uiServerURL, tokens, clientOpts...)

	// OData API
	fmt.Printf("\n[OData] first rows of %s:\n", table)
	page, err := odataClient.Table(ctx, table, odata.Query{Top: 5, Count: true})
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	} else {
		fmt.Printf("  rows=%d total=%d\n", len(page.Value), page.TotalCount())
	}

	// Transaction API
	fmt.Println("\n[Transaction] services:")
	txClient := transaction.NewClient(uiClient)
	services, err := txClient.Services(ctx)
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	} else {
		fmt.Printf("  %d services available\n", len(services))
	}

	fmt.Printf("\n[Transaction] definition of %s:\n", service)
	def, err := txClient.Definition(ctx, service)
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	} else {
		fmt.Printf("  %d top-level keys\n", len(def))
	}

	// Entity API
	fmt.Println("\n[Entity] endpoint probe:")
	entityClient := entity.NewClient(baseClient)
	for _, result := range entityClient.Probe(ctx) {
		status := "--"
		if result.Available {
			status = "OK"
		}
		fmt.Printf("  [%s] %s: %s\n", status, result.Endpoint.Name, result.Endpoint.Path)
	}

	// Interactive API: open a session, list it, end it.
	fmt.Println("\n[Interactive] session check:")
	session := interactive.NewSession(uiClient, interactive.WithLogger(logger))
	err = session.Run(ctx, false, func(ctx context.Context) error {
		sessions, err := session.List(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  open sessions: %d\n", len(sessions))
		return nil
	})
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	} else {
		fmt.Println("  session opened and closed cleanly")
	}

	return nil
}
