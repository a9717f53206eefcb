package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/clicktrail/internal/config"
)

const validYAML = `version: v1
tracker:
  label: "[Tracker]"
  phase: capture
page:
  url: https://example.com/
  file: index.html
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "clicktrail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoader_DefaultsAndRelativePage(t *testing.T) {
	dir := t.TempDir()
	l, err := config.NewLoader(writeConfig(t, dir, validYAML))
	require.NoError(t, err)

	cfg := l.Config()
	require.NoError(t, config.Validate(cfg))
	assert.Equal(t, "[Tracker]", cfg.Tracker.Label)
	assert.Equal(t, config.SinkConsole, cfg.Tracker.Sink)
	assert.Equal(t, 1024, cfg.Loop.QueueDepth)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "index.html"), cfg.Page.File)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := config.NewLoader(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"ok", func(*config.Config) {}, ""},
		{"no version", func(c *config.Config) { c.Version = "" }, "version is required"},
		{"bad phase", func(c *config.Config) { c.Tracker.Phase = "target" }, "tracker.phase"},
		{"bad sink", func(c *config.Config) { c.Tracker.Sink = "kafka" }, "tracker.sink"},
		{"relative url", func(c *config.Config) { c.Page.URL = "/index.html" }, "absolute URL"},
		{"no file", func(c *config.Config) { c.Page.File = "" }, "page.file"},
		{"bad depth", func(c *config.Config) { c.Loop.QueueDepth = -1 }, "queue_depth"},
		{"bad level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(validYAML))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = config.Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_ReloadKeepsOldConfigOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	l, err := config.NewLoader(path)
	require.NoError(t, err)

	var seen []string
	l.OnChange(func(c *config.Config) { seen = append(seen, c.Tracker.Label) })

	writeConfig(t, dir, "version: v1\ntracker:\n  phase: sideways\npage:\n  url: https://example.com/\n  file: x.html\n")
	_, err = l.Reload()
	assert.Error(t, err)
	assert.Equal(t, "[Tracker]", l.Config().Tracker.Label)

	writeConfig(t, dir, validYAML+"log:\n  level: debug\n")
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"[Tracker]"}, seen)
}

func TestLoader_WatchPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, validYAML)
	l, err := config.NewLoader(path)
	require.NoError(t, err)

	changed := make(chan string, 4)
	l.OnChange(func(c *config.Config) { changed <- c.Tracker.Label })
	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	writeConfig(t, dir, "version: v1\ntracker:\n  label: \"[New]\"\npage:\n  url: https://example.com/\n  file: index.html\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case label := <-changed:
			if label == "[New]" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
