package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/clicktrail/internal/config"
	"github.com/gyaneshwarpardhi/clicktrail/internal/eventloop"
	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
	"github.com/gyaneshwarpardhi/clicktrail/internal/logging"
	"github.com/gyaneshwarpardhi/clicktrail/internal/sink"
	"github.com/gyaneshwarpardhi/clicktrail/internal/tracker"
)

const applyTimeout = 5 * time.Second

// reloader applies hot-reloaded config to the running process. applied is
// the last config that took effect; every reload is compared against it.
type reloader struct {
	applied  atomic.Pointer[config.Config]
	tracker  *tracker.Tracker
	loop     *eventloop.Loop
	levelVar *slog.LevelVar
	logger   *slog.Logger
	newSink  func(config.TrackerConf) sink.Sink
	addr     string // -addr override, re-applied to every reload
}

// restartOnly lists settings that are read once at startup.
func restartOnly(prev, next *config.Config) []string {
	var out []string
	if prev.Log.Format != next.Log.Format {
		out = append(out, "log.format")
	}
	if prev.Page.URL != next.Page.URL {
		out = append(out, "page.url")
	}
	if prev.Page.File != next.Page.File {
		out = append(out, "page.file")
	}
	if prev.Loop.QueueDepth != next.Loop.QueueDepth {
		out = append(out, "loop.queue_depth")
	}
	if prev.Server.Addr != next.Server.Addr {
		out = append(out, "server.addr")
	}
	return out
}

// apply brings the tracker and logger in line with next. The tracker swap
// runs on the event loop so it never interleaves with a click dispatch.
func (r *reloader) apply(next *config.Config) error {
	if r.addr != "" {
		next.Server.Addr = r.addr
	}
	prev := r.applied.Load()

	var changed []string
	lvl, err := logging.ParseLevel(next.Log.Level)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	phase, err := host.ParsePhase(next.Tracker.Phase)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}

	settings := tracker.Settings{Phase: phase}
	if prev.Tracker.Label != next.Tracker.Label || prev.Tracker.Sink != next.Tracker.Sink {
		settings.Sink = r.newSink(next.Tracker)
		changed = append(changed, "tracker.sink")
	}
	if prev.Tracker.Phase != next.Tracker.Phase {
		changed = append(changed, "tracker.phase")
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	if err := r.loop.Do(ctx, func(context.Context) error { return r.tracker.Apply(settings) }); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}

	if prev.Log.Level != next.Log.Level {
		r.levelVar.Set(lvl)
		changed = append(changed, "log.level")
	}
	r.applied.Store(next)

	if stale := restartOnly(prev, next); len(stale) > 0 {
		r.logger.Warn("config changes take effect on restart", "fields", stale)
	}
	if len(changed) == 0 {
		r.logger.Debug("config reloaded, nothing to apply")
		return nil
	}
	r.logger.Info("config hot-reloaded", "applied", changed)
	return nil
}
