// Package main implements the ghroast HTTP API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/ghroast/pkg/config"
	"github.com/codeGROOVE-dev/ghroast/pkg/gemini"
	"github.com/codeGROOVE-dev/ghroast/pkg/github"
	"github.com/codeGROOVE-dev/ghroast/pkg/roast"
	"github.com/codeGROOVE-dev/ghroast/pkg/server"
	"github.com/codeGROOVE-dev/ghroast/pkg/session"
)

var (
	configPath = flag.String("config", "", "Config file (default "+config.DefaultPath()+")")
	addr       = flag.String("addr", "", "Listen address (overrides config)")
	rateLimit  = flag.Int("rate-limit", 15, "Roast requests per client IP per minute (0 disables)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("server configuration", "config", cfg, "rate_limit", *rateLimit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(ctx, cfg.Session.Backend, cfg.Session.Path, cfg.Session.TTL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close session store", "error", err)
		}
	}()

	fetcher := github.NewFetcher(
		github.WithLogger(logger),
		github.WithToken(cfg.GitHub.Token),
		github.WithEndpoints(cfg.GitHub.APIURL, cfg.GitHub.GraphQLURL),
	)
	if !fetcher.HasToken() {
		logger.Warn("no GitHub token configured; only basic profiles are available")
	}
	generator := gemini.NewClient(cfg.GeminiConfig(), gemini.WithLogger(logger))
	svc := roast.NewService(fetcher, generator, store, roast.WithLogger(logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(svc, fetcher, store, server.WithLogger(logger), server.WithRateLimit(*rateLimit)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
