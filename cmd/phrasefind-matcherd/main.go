package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/phrasefind/pkg/phrasefind/config"
	"github.com/cognicore/phrasefind/pkg/phrasefind/httpapi"
	"github.com/cognicore/phrasefind/pkg/phrasefind/logging"
	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
	"github.com/cognicore/phrasefind/pkg/phrasefind/pipeline"
)

func main() {
	configPath := flag.String("config", "", "Daemon YAML config path (required)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadDaemonConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logging.Setup("info", "json")
	slog.Info("starting matcher daemon", "listen_addr", cfg.ListenAddr, "artifact_dir", cfg.ArtifactDir)

	handle := matcher.New()
	if cfg.ArtifactDir != "" {
		if err := handle.Load(cfg.ArtifactDir); err != nil {
			log.Fatal("Failed to load initial artifact set:", err)
		}
		stats := handle.Stats()
		slog.Info("loaded artifact set",
			"num_patterns", stats.NumPatterns,
			"heap", humanize.Bytes(uint64(stats.HeapMB*1024*1024)),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SIGHUP reloads the configured artifact directory in place: the manual
	// reload trigger alongside the optional Redis-notified one below.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := handle.Load(cfg.ArtifactDir); err != nil {
				slog.Error("manual reload failed", "artifact_dir", cfg.ArtifactDir, "error", err)
				continue
			}
			slog.Info("reloaded artifact set on SIGHUP", "artifact_dir", cfg.ArtifactDir)
		}
	}()

	if cfg.Redis != nil {
		err := pipeline.SubscribeReload(ctx, pipeline.ReloadConfig{
			Addr:    cfg.Redis.Addr,
			Channel: cfg.Redis.Channel,
		}, handle)
		if err != nil {
			// Redis being unavailable at subscribe time is soft per
			// SPEC_FULL §7: the daemon still serves matches, just without
			// automatic hot reload.
			slog.Warn("redis reload subscription unavailable, hot reload disabled", "error", err)
		} else {
			slog.Info("subscribed to reload notifications", "channel", cfg.Redis.Channel)
		}
	}

	metrics := httpapi.NewMetrics(handle)
	mux := httpapi.NewMux(handle, metrics, httpapi.Config{
		MetricsPath:   cfg.MetricsPath,
		HealthPath:    cfg.HealthPath,
		DefaultPolicy: cfg.DefaultPolicy,
		MaxSpans:      cfg.MaxSpans,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("matcher daemon listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("matcher daemon stopped")
}
