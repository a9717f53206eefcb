package tracker

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/clicktrail/internal/activity"
	"github.com/gyaneshwarpardhi/clicktrail/internal/metrics"
	"github.com/gyaneshwarpardhi/clicktrail/internal/sink"
)

// Formatter stamps details with their event tag and the current time and
// writes the resulting record to a sink. It keeps no record after Emit returns.
type Formatter struct {
	sink  atomic.Pointer[sinkBox]
	clock func() time.Time
}

// sinkBox lets any Sink implementation sit behind one atomic pointer type.
type sinkBox struct{ sink.Sink }

// NewFormatter returns a Formatter writing to s. A nil clock means time.Now.
func NewFormatter(s sink.Sink, clock func() time.Time) *Formatter {
	if clock == nil {
		clock = time.Now
	}
	f := &Formatter{clock: clock}
	f.SetSink(s)
	return f
}

// SetSink atomically replaces the sink (used on config hot-reload).
func (f *Formatter) SetSink(s sink.Sink) {
	f.sink.Store(&sinkBox{s})
}

// Emit builds one record from d and writes it. Sink failures are returned
// to the caller unchanged apart from context.
func (f *Formatter) Emit(d activity.Details) error {
	rec := activity.New(d, f.clock())
	box := f.sink.Load()
	if box == nil || box.Sink == nil {
		metrics.SinkErrors.WithLabelValues(string(rec.Event)).Inc()
		return fmt.Errorf("emit %s: %w", rec.Event, sink.ErrSinkUnavailable)
	}
	if err := box.Write(rec); err != nil {
		metrics.SinkErrors.WithLabelValues(string(rec.Event)).Inc()
		return fmt.Errorf("emit %s: %w", rec.Event, err)
	}
	metrics.RecordsEmitted.WithLabelValues(string(rec.Event)).Inc()
	return nil
}
