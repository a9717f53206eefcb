package dom

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/clicktrail/internal/host"
)

// EventPhase reports where an event is during dispatch.
type EventPhase int

const (
	PhaseNone EventPhase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Event is a dispatched DOM event.
type Event struct {
	Type string

	target           *Node
	current          *Node
	phase            EventPhase
	stopped          bool
	stoppedImmediate bool
}

var _ host.ClickEvent = (*Event)(nil)

// NewEvent creates an undispatched event of the given type.
func NewEvent(typ string) *Event { return &Event{Type: typ} }

// Target returns the element the event was dispatched to. A nil target is
// returned as a nil interface.
func (e *Event) Target() host.Element {
	if e.target == nil {
		return nil
	}
	return e.target
}

// CurrentTarget is the node whose listeners are running.
func (e *Event) CurrentTarget() *Node { return e.current }

// Phase is the current dispatch phase.
func (e *Event) Phase() EventPhase { return e.phase }

// StopPropagation prevents the event reaching further nodes. Listeners on
// the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation also skips the remaining listeners on the
// current node.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedImmediate = true
}

type listener struct {
	typ     string
	phase   host.Phase
	fn      host.Listener
	removed bool
}

type registration struct {
	doc *Document
	n   *Node
	l   *listener
}

// Remove detaches the listener. It is safe to call more than once.
func (r *registration) Remove() {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	r.l.removed = true
	ls := r.n.listeners
	for i, l := range ls {
		if l == r.l {
			r.n.listeners = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// AddEventListener attaches fn to node n for events of type typ.
func (d *Document) AddEventListener(n *Node, typ string, opts host.ListenerOptions, fn host.Listener) host.Registration {
	l := &listener{typ: typ, phase: opts.Phase, fn: fn}
	d.mu.Lock()
	n.listeners = append(n.listeners, l)
	d.mu.Unlock()
	return &registration{doc: d, n: n, l: l}
}

// Dispatch sends ev to target along the path document → … → target. Capture
// listeners run outermost first, listeners on the target run capture then
// bubble, and bubble listeners run back outward. Listener errors are joined
// and returned; they do not interrupt dispatch.
func (d *Document) Dispatch(target *Node, ev *Event) error {
	if target == nil {
		return errors.New("dispatch: nil target")
	}
	ev.target = target
	defer func() {
		ev.current = nil
		ev.phase = PhaseNone
	}()

	var path []*Node // target's ancestors, outermost first
	for p := target.Parent; p != nil; p = p.Parent {
		path = append([]*Node{p}, path...)
	}

	var errs []error
	ev.phase = PhaseCapturing
	for _, n := range path {
		errs = d.invoke(n, ev, func(l *listener) bool { return l.phase == host.PhaseCapture }, errs)
		if ev.stopped {
			return errors.Join(errs...)
		}
	}

	ev.phase = PhaseAtTarget
	errs = d.invoke(target, ev, func(l *listener) bool { return l.phase == host.PhaseCapture }, errs)
	if !ev.stoppedImmediate {
		errs = d.invoke(target, ev, func(l *listener) bool { return l.phase == host.PhaseBubble }, errs)
	}
	if ev.stopped {
		return errors.Join(errs...)
	}

	ev.phase = PhaseBubbling
	for i := len(path) - 1; i >= 0; i-- {
		errs = d.invoke(path[i], ev, func(l *listener) bool { return l.phase == host.PhaseBubble }, errs)
		if ev.stopped {
			break
		}
	}
	return errors.Join(errs...)
}

func (d *Document) invoke(n *Node, ev *Event, match func(*listener) bool, errs []error) []error {
	d.mu.Lock()
	snapshot := make([]*listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		if l.typ == ev.Type && match(l) {
			snapshot = append(snapshot, l)
		}
	}
	d.mu.Unlock()

	ev.current = n
	for _, l := range snapshot {
		d.mu.Lock()
		removed := l.removed
		d.mu.Unlock()
		if removed {
			continue
		}
		if err := l.fn(ev); err != nil {
			errs = append(errs, fmt.Errorf("%s listener on %s: %w", ev.Type, describe(n), err))
		}
		if ev.stoppedImmediate {
			break
		}
	}
	return errs
}

func describe(n *Node) string {
	switch n.Type {
	case DocumentNode:
		return "#document"
	case TextNode:
		return "#text"
	}
	return n.Data
}

// Click dispatches a click event to target.
func (d *Document) Click(target *Node) error {
	return d.Dispatch(target, NewEvent("click"))
}
