// Package sink writes activity records to a logging channel.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gyaneshwarpardhi/clicktrail/internal/activity"
)

// ErrSinkUnavailable indicates the logging channel did not accept output.
var ErrSinkUnavailable = errors.New("sink unavailable")

// DefaultLabel prefixes every console line.
const DefaultLabel = "[Activity Tracker]"

// Sink accepts records.
type Sink interface {
	Write(rec activity.Record) error
}

// Func adapts a function to the Sink interface.
type Func func(rec activity.Record) error

// Write calls f.
func (f Func) Write(rec activity.Record) error { return f(rec) }

// Console writes one "<label> <json>" line per record.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	label string
}

// NewConsole returns a Console writing to w. An empty label disables the prefix.
func NewConsole(w io.Writer, label string) *Console {
	return &Console{w: w, label: label}
}

func (c *Console) Write(rec activity.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", rec.Event, err)
	}
	line := make([]byte, 0, len(c.label)+len(data)+2)
	if c.label != "" {
		line = append(line, c.label...)
		line = append(line, ' ')
	}
	line = append(line, data...)
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(line); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}
	return nil
}

// Log emits records as structured slog entries at info level. The message
// is the label; event and timestamp lead the attributes.
type Log struct {
	logger *slog.Logger
	label  string
}

// NewLog returns a Log sink.
func NewLog(logger *slog.Logger, label string) *Log {
	if label == "" {
		label = DefaultLabel
	}
	return &Log{logger: logger, label: label}
}

func (l *Log) Write(rec activity.Record) error {
	if l.logger == nil {
		return fmt.Errorf("%w: nil logger", ErrSinkUnavailable)
	}
	args := append([]any{
		"event", string(rec.Event),
		"timestamp", activity.FormatTimestamp(rec.Timestamp),
	}, rec.Fields()...)
	l.logger.Log(context.Background(), slog.LevelInfo, l.label, args...)
	return nil
}

// Multi writes to each sink in order. Every sink is attempted; failures are
// joined.
type Multi []Sink

func (m Multi) Write(rec activity.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
