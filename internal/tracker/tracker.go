// Package tracker emits a page-view record when attached to a page and a
// click record for every click that lands on a specific element.
package tracker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/clicktrail/internal/activity"
	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
	"github.com/gyaneshwarpardhi/clicktrail/internal/metrics"
	"github.com/gyaneshwarpardhi/clicktrail/internal/sink"
)

// Options controls tracker behaviour. The zero value registers the click
// hook in the capture phase.
type Options struct {
	Phase  host.Phase
	Clock  func() time.Time
	Logger *slog.Logger
}

// Settings are the parts of a tracker that can change while it runs. The
// record label travels with the sink that prints it.
type Settings struct {
	Phase host.Phase
	Sink  sink.Sink // nil keeps the current sink
}

// Tracker wires the formatter to a host environment.
type Tracker struct {
	formatter *Formatter
	phase     atomic.Pointer[host.Phase]
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// New returns a Tracker writing records to s.
func New(s sink.Sink, opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Tracker{
		formatter: NewFormatter(s, opts.Clock),
		logger:    logger,
		sessions:  make(map[*Session]struct{}),
	}
	phase := opts.Phase
	t.phase.Store(&phase)
	return t
}

// Formatter exposes the tracker's formatter.
func (t *Tracker) Formatter() *Formatter { return t.formatter }

// Phase returns the phase new and rebound click hooks register in.
func (t *Tracker) Phase() host.Phase { return *t.phase.Load() }

// Apply swaps in new settings. A phase change re-registers the click hook of
// every live session; it must run where clicks are dispatched (the page's
// event loop) so no click is seen twice or missed during the swap.
func (t *Tracker) Apply(s Settings) error {
	if s.Sink != nil {
		t.formatter.SetSink(s.Sink)
	}
	phase := s.Phase
	t.phase.Store(&phase)

	t.mu.Lock()
	live := make([]*Session, 0, len(t.sessions))
	for sess := range t.sessions {
		live = append(live, sess)
	}
	t.mu.Unlock()

	var errs []error
	for _, sess := range live {
		if err := sess.rebind(phase); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Session is an attached tracker. The click hook stays registered until Stop.
type Session struct {
	tracker *Tracker
	env     host.Environment

	mu      sync.Mutex
	reg     host.Registration
	phase   host.Phase
	stopped bool
}

// Phase reports the phase the session's click hook is registered in.
func (s *Session) Phase() host.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Stop detaches the click hook. Further calls do nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.reg.Remove()
	s.mu.Unlock()

	s.tracker.mu.Lock()
	delete(s.tracker.sessions, s)
	s.tracker.mu.Unlock()
}

// rebind moves the click hook to phase. The new hook is attached before the
// old one is removed; on failure the old hook stays.
func (s *Session) rebind(phase host.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.phase == phase {
		return nil
	}
	reg, err := s.env.AddClickListener(host.ListenerOptions{Phase: phase}, s.tracker.clickHook(s.env))
	if err != nil {
		return fmt.Errorf("rebind click hook to %s: %w", phase, err)
	}
	s.reg.Remove()
	s.reg = reg
	s.phase = phase
	s.tracker.logger.Info("click hook rebound", "phase", phase.String())
	return nil
}

// Initialize emits the page-view record, registers the click hook on the
// document root and logs that the tracker is active. If the page view cannot
// be emitted nothing is registered.
func (t *Tracker) Initialize(env host.Environment) (*Session, error) {
	if env == nil {
		return nil, fmt.Errorf("initialize: %w", host.ErrEnvironmentUnavailable)
	}
	if err := t.trackPageView(env); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	phase := t.Phase()
	reg, err := env.AddClickListener(host.ListenerOptions{Phase: phase}, t.clickHook(env))
	if err != nil {
		return nil, fmt.Errorf("initialize: register click hook: %w", err)
	}
	sess := &Session{tracker: t, env: env, reg: reg, phase: phase}
	t.mu.Lock()
	t.sessions[sess] = struct{}{}
	t.mu.Unlock()

	t.logger.Info("activity tracker active", "phase", phase.String())
	return sess, nil
}

func (t *Tracker) trackPageView(env host.Environment) error {
	url, err := env.CurrentURL()
	if err != nil {
		return fmt.Errorf("page view: %w", err)
	}
	title, err := env.CurrentTitle()
	if err != nil {
		return fmt.Errorf("page view: %w", err)
	}
	return t.formatter.Emit(activity.PageView{URL: url, Title: title})
}

// clickHook returns the listener attached to the document root.
func (t *Tracker) clickHook(env host.Environment) host.Listener {
	return func(ev host.ClickEvent) error {
		target := ev.Target()
		if target == nil || sameElement(target, env.Body()) || sameElement(target, env.DocumentElement()) {
			metrics.ClicksIgnored.Inc()
			return nil
		}
		return t.formatter.Emit(Describe(target))
	}
}

func sameElement(a, b host.Element) bool {
	return b != nil && a.IsSameNode(b)
}

// Describe extracts the click payload for el.
func Describe(el host.Element) activity.Click {
	return activity.Click{
		Tag:     el.TagName(),
		ID:      activity.OrNotAvailable(el.ID()),
		Classes: activity.OrNotAvailable(el.ClassName()),
		Text:    activity.TruncateText(el.TextContent()),
	}
}
