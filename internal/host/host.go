// Package host describes what the tracker needs from the environment that
// hosts a page: location and title accessors, the two outermost elements, and
// click listener registration with an explicit dispatch phase.
package host

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEnvironmentUnavailable is returned when page or document accessors are
// missing, e.g. when running outside a page context.
var ErrEnvironmentUnavailable = errors.New("host environment unavailable")

// Element exposes the per-element accessors the click hook reads.
type Element interface {
	TagName() string
	ID() string
	ClassName() string
	TextContent() string
	// IsSameNode reports whether other is this very element.
	IsSameNode(other Element) bool
}

// ClickEvent is the event object handed to click listeners.
type ClickEvent interface {
	// Target is the most specific element that was clicked.
	Target() Element
	StopPropagation()
	StopImmediatePropagation()
}

// Phase selects when a listener runs during dispatch.
type Phase int

const (
	// PhaseCapture runs outermost-to-innermost, before any bubble listener.
	PhaseCapture Phase = iota
	// PhaseBubble runs innermost-to-outermost, after the target.
	PhaseBubble
)

func (p Phase) String() string {
	switch p {
	case PhaseCapture:
		return "capture"
	case PhaseBubble:
		return "bubble"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase accepts "capture" or "bubble" (case-insensitive).
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "capture":
		return PhaseCapture, nil
	case "bubble":
		return PhaseBubble, nil
	}
	return 0, fmt.Errorf("unknown dispatch phase %q", s)
}

// ListenerOptions configures a registration.
type ListenerOptions struct {
	Phase Phase
}

// Listener handles one click. A returned error is reported to whatever
// dispatched the event; it does not stop dispatch.
type Listener func(ClickEvent) error

// Registration is a handle to an attached listener.
type Registration interface {
	Remove()
}

// Environment is the hosting page.
type Environment interface {
	CurrentURL() (string, error)
	CurrentTitle() (string, error)
	// Body is the root container element.
	Body() Element
	// DocumentElement is the top-level element of the document.
	DocumentElement() Element
	// AddClickListener attaches fn to the root of the document tree.
	AddClickListener(opts ListenerOptions, fn Listener) (Registration, error)
}

// Headless returns an Environment with no page behind it. Every accessor
// fails with ErrEnvironmentUnavailable.
func Headless() Environment { return headless{} }

type headless struct{}

func (headless) CurrentURL() (string, error)   { return "", headlessErr("location") }
func (headless) CurrentTitle() (string, error) { return "", headlessErr("document title") }
func (headless) Body() Element                 { return nil }
func (headless) DocumentElement() Element      { return nil }

func (headless) AddClickListener(ListenerOptions, Listener) (Registration, error) {
	return nil, headlessErr("document")
}

func headlessErr(what string) error {
	return fmt.Errorf("%s: %w", what, ErrEnvironmentUnavailable)
}
