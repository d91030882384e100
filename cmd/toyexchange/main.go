package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/toyexchange/internal/config"
	"github.com/efreitasn/toyexchange/internal/handler"
	"github.com/efreitasn/toyexchange/internal/logging"
	"github.com/efreitasn/toyexchange/internal/pricing"
	"github.com/efreitasn/toyexchange/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	batchMode := flag.Bool("batch", false, "Run a batch read from stdin and print the exchange report")
	quotesMode := flag.Bool("quotes", false, "List the listings read from stdin and print the quotes report")
	positions := flag.String("positions", "", "List the quotes read from stdin on the named exchange and print its positions")
	thresholdMode := flag.Bool("threshold", false, "Run a session read from stdin; args: <exchange> <threshold> <operator> <budget>")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The report modes own stdout, so their logs go to stderr.
	logOut := io.Writer(os.Stdout)
	if *batchMode || *quotesMode || *thresholdMode || *positions != "" {
		logOut = os.Stderr
	}
	logger, logCloser := logging.New(logOut, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()
	slog.SetDefault(logger)

	policies, err := config.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load policies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *batchMode:
		err = runBatch(ctx, os.Stdin, os.Stdout, newApp(policies, nil, logger))
	case *quotesMode:
		err = runQuotes(os.Stdin, os.Stdout, newApp(policies, nil, logger))
	case *positions != "":
		err = runPositions(os.Stdin, os.Stdout, newApp(policies, nil, logger), *positions)
	case *thresholdMode:
		err = runThreshold(ctx, os.Stdin, os.Stdout, newApp(policies, nil, logger), flag.Args())
	default:
		err = serve(ctx, cfg, policies, logger)
	}
	if err != nil {
		logger.Error("exiting", slog.String("error", err.Error()))
		logCloser.Close()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, policies map[string]pricing.Policy, logger *slog.Logger) error {
	journal, err := store.OpenJournal(cfg.JournalDSN)
	if err != nil {
		return err
	}
	defer journal.Close()

	a := newApp(policies, journal, logger)
	router := handler.NewRouter(a.market, a.operators, a.reports, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
