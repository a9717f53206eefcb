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

	"github.com/gyaneshwarpardhi/clicktrail/internal/api"
	"github.com/gyaneshwarpardhi/clicktrail/internal/config"
	"github.com/gyaneshwarpardhi/clicktrail/internal/dom"
	"github.com/gyaneshwarpardhi/clicktrail/internal/eventloop"
	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
	"github.com/gyaneshwarpardhi/clicktrail/internal/logging"
	"github.com/gyaneshwarpardhi/clicktrail/internal/sink"
	"github.com/gyaneshwarpardhi/clicktrail/internal/tracker"
)

func main() {
	cfgPath := flag.String("config", "configs/clicktrail.yaml", "Path to YAML config")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

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
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	levelVar := new(slog.LevelVar)
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, LevelVar: levelVar})
	if err != nil {
		slog.Error("failed to build logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// ── Host page ─────────────────────────────────────────────────────────────
	page, err := dom.LoadPage(cfg.Page.File, cfg.Page.URL)
	if err != nil {
		slog.Error("failed to load page", "err", err)
		os.Exit(1)
	}

	// ── Tracker ───────────────────────────────────────────────────────────────
	phase, _ := host.ParsePhase(cfg.Tracker.Phase) // validated above
	tr := tracker.New(newSink(cfg.Tracker, logger), tracker.Options{Phase: phase, Logger: logger})
	session, err := tr.Initialize(page)
	if err != nil {
		slog.Error("tracker initialization failed", "err", err)
		os.Exit(1)
	}
	defer session.Stop()

	// ── Event loop ────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := eventloop.New(ctx, cfg.Loop.QueueDepth, func(err error) {
		slog.Warn("click dispatch failed", "err", err)
	})

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	rl := &reloader{
		tracker:  tr,
		loop:     loop,
		levelVar: levelVar,
		logger:   logger,
		newSink:  func(conf config.TrackerConf) sink.Sink { return newSink(conf, logger) },
		addr:     *addr,
	}
	rl.applied.Store(cfg)
	loader.OnChange(func(newCfg *config.Config) {
		if err := rl.apply(newCfg); err != nil {
			slog.Warn("hot-reload not applied", "err", err)
		}
	})
	loader.OnError(func(err error) {
		slog.Warn("hot-reload skipped", "err", err)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.New(page, loop, loader, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr, "page", cfg.Page.URL)
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
	loop.Drain() // run queued clicks before detaching the hook
	session.Stop()
	slog.Info("goodbye")
}

// newSink builds the record sink named by conf. Console output goes to
// stdout; diagnostic logs stay on stderr.
func newSink(conf config.TrackerConf, logger *slog.Logger) sink.Sink {
	switch conf.Sink {
	case config.SinkLog:
		return sink.NewLog(logger, conf.Label)
	case config.SinkBoth:
		return sink.Multi{sink.NewConsole(os.Stdout, conf.Label), sink.NewLog(logger, conf.Label)}
	default:
		return sink.NewConsole(os.Stdout, conf.Label)
	}
}
