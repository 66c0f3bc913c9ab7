package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/eventstatus/internal/api"
	"github.com/gyaneshwarpardhi/eventstatus/internal/config"
	"github.com/gyaneshwarpardhi/eventstatus/internal/eventsapi"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	cfgPath := flag.String("config", "configs/eventstatus.yaml", "Path to YAML config")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring .env", "err", err)
	}

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	listen := cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	// ── Events API client ─────────────────────────────────────────────────────
	timeout := time.Duration(cfg.Upstream.TimeoutMs) * time.Millisecond
	client := eventsapi.New(cfg.Upstream.BaseURL, timeout)
	slog.Info("events api configured", "base_url", client.BaseURL(), "timeout", timeout)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		client.SetBaseURL(newCfg.Upstream.BaseURL)
		level.Set(newCfg.LogLevel())
		slog.Info("config hot-reloaded", "version", newCfg.Version, "base_url", newCfg.Upstream.BaseURL)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         listen,
		Handler:      api.New(client, loader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}
