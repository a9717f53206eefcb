// Package activity defines the records emitted by the tracker.
package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Kind is the event tag carried by every record.
type Kind string

const (
	KindPageView Kind = "pageView"
	KindClick    Kind = "click"
)

const (
	// NotAvailable replaces empty or missing id/class values.
	NotAvailable = "N/A"
	// MaxTextLen is the maximum number of characters kept from element text.
	MaxTextLen = 50
)

// TimestampLayout is ISO-8601 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Details is the event-specific payload. Only the types in this package
// implement it, so a record can never carry fields of two kinds.
type Details interface {
	Kind() Kind
	sealed()
}

// PageView is emitted once per initialization.
type PageView struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (PageView) Kind() Kind { return KindPageView }
func (PageView) sealed()    {}

// Click describes the element a click landed on.
type Click struct {
	Tag     string `json:"tag"`
	ID      string `json:"id"`
	Classes string `json:"classes"`
	Text    string `json:"text"`
}

func (Click) Kind() Kind { return KindClick }
func (Click) sealed()    {}

// Record is a single activity record. It is built, written, and dropped.
type Record struct {
	Event     Kind
	Timestamp time.Time
	Details   Details
}

// New stamps details with their kind and the given time.
func New(d Details, at time.Time) Record {
	return Record{Event: d.Kind(), Timestamp: at, Details: d}
}

// MarshalJSON renders the record as one flat object: event, timestamp, then
// the fields of its kind.
func (r Record) MarshalJSON() ([]byte, error) {
	ts := FormatTimestamp(r.Timestamp)
	switch d := r.Details.(type) {
	case PageView:
		return json.Marshal(struct {
			Event     Kind   `json:"event"`
			Timestamp string `json:"timestamp"`
			PageView
		}{r.Event, ts, d})
	case Click:
		return json.Marshal(struct {
			Event     Kind   `json:"event"`
			Timestamp string `json:"timestamp"`
			Click
		}{r.Event, ts, d})
	default:
		return nil, fmt.Errorf("activity: unsupported details %T", r.Details)
	}
}

// Fields returns the payload as ordered key/value pairs, without event and
// timestamp. Used by sinks that log attributes instead of JSON.
func (r Record) Fields() []any {
	switch d := r.Details.(type) {
	case PageView:
		return []any{"url", d.URL, "title", d.Title}
	case Click:
		return []any{"tag", d.Tag, "id", d.ID, "classes", d.Classes, "text", d.Text}
	}
	return nil
}

// FormatTimestamp renders t in UTC, e.g. 2024-07-01T12:34:56.789Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// OrNotAvailable returns s, or NotAvailable when s is empty.
func OrNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// TruncateText trims surrounding whitespace and keeps at most MaxTextLen
// characters. The cut ignores word boundaries; whitespace exposed by the cut
// is trimmed as well.
func TruncateText(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxTextLen {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxTextLen {
			return strings.TrimRightFunc(s[:i], unicode.IsSpace)
		}
		n++
	}
	return s
}
