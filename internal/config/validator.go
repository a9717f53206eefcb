package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
)

// Validate checks the config for:
//   - Required fields (version, page url)
//   - A known dispatch phase and sink kind
//   - Sane loop and logging settings
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if _, err := host.ParsePhase(cfg.Tracker.Phase); err != nil {
		errs = append(errs, fmt.Sprintf("tracker.phase: %s", err))
	}
	switch cfg.Tracker.Sink {
	case SinkConsole, SinkLog, SinkBoth:
	default:
		errs = append(errs, fmt.Sprintf("tracker.sink: unknown sink %q (want console, log or both)", cfg.Tracker.Sink))
	}

	if cfg.Page.URL == "" {
		errs = append(errs, "page.url is required")
	} else if u, err := url.Parse(cfg.Page.URL); err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Sprintf("page.url %q must be an absolute URL", cfg.Page.URL))
	}
	if cfg.Page.File == "" {
		errs = append(errs, "page.file is required")
	}

	if cfg.Loop.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("loop.queue_depth must be positive, got %d", cfg.Loop.QueueDepth))
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: unknown format %q", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
