package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/clicktrail/internal/activity"
	"github.com/gyaneshwarpardhi/clicktrail/internal/api"
	"github.com/gyaneshwarpardhi/clicktrail/internal/config"
	"github.com/gyaneshwarpardhi/clicktrail/internal/dom"
	"github.com/gyaneshwarpardhi/clicktrail/internal/eventloop"
	"github.com/gyaneshwarpardhi/clicktrail/internal/sink"
	"github.com/gyaneshwarpardhi/clicktrail/internal/tracker"
)

const page = `<html><head><title>Shop</title></head><body>
<nav><a id="home" class="nav-link" href="/">Home</a></nav>
<button id="buy" class="btn">Buy</button>
</body></html>`

type fixture struct {
	handler http.Handler
	loop    *eventloop.Loop
	records chan activity.Record
	fail    bool
}

func newFixture(t *testing.T, reloader api.Reloader) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, reloader, nil)
}

func newFixtureWithLogger(t *testing.T, reloader api.Reloader, logger *slog.Logger) *fixture {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	p, err := dom.NewPage("https://shop.example/", doc)
	require.NoError(t, err)

	f := &fixture{records: make(chan activity.Record, 16)}
	s := sink.Func(func(rec activity.Record) error {
		if f.fail {
			return sink.ErrSinkUnavailable
		}
		f.records <- rec
		return nil
	})
	_, err = tracker.New(s, tracker.Options{}).Initialize(p)
	require.NoError(t, err)
	<-f.records // page view

	f.loop = eventloop.New(context.Background(), 8, nil)
	t.Cleanup(f.loop.Drain)
	f.handler = api.New(p, f.loop, reloader, logger)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestClick_Dispatches(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v1/clicks", `{"selector":"#buy"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "BUTTON", resp["tag"])
	assert.NotEmpty(t, resp["dispatch_id"])

	rec := <-f.records
	assert.Equal(t, activity.Click{Tag: "BUTTON", ID: "buy", Classes: "btn", Text: "Buy"}, rec.Details)
}

func TestClick_BodyProducesNoRecord(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v1/clicks", `{"selector":"body"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.records)
}

func TestClick_Errors(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing selector", `{}`, http.StatusBadRequest},
		{"bad selector", `{"selector":"a > b"}`, http.StatusBadRequest},
		{"no match", `{"selector":"#missing"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/v1/clicks", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestClick_SinkFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fail = true

	w := f.do(http.MethodPost, "/v1/clicks", `{"selector":"#home"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], sink.ErrSinkUnavailable.Error())
}

func TestClickBatch_PreservesOrder(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v1/clicks/batch", `[{"selector":"#home"},{"selector":"#nope"},{"selector":"#buy"}]`)
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decode(t, w)
	assert.EqualValues(t, 3, resp["total"])
	assert.EqualValues(t, 2, resp["queued"])
	assert.Equal(t, []any{"#nope"}, resp["unresolved"])

	var ids []string
	for len(ids) < 2 {
		select {
		case rec := <-f.records:
			ids = append(ids, rec.Details.(activity.Click).ID)
		case <-time.After(time.Second):
			t.Fatal("batch clicks not dispatched")
		}
	}
	assert.Equal(t, []string{"home", "buy"}, ids)
}

func TestClickBatch_Limits(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/clicks/batch", `[]`).Code)
	big := "[" + strings.TrimSuffix(strings.Repeat(`{"selector":"a"},`, 101), ",") + "]"
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/clicks/batch", big).Code)
}

func TestPageInfo(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/v1/page", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"url": "https://shop.example/", "title": "Shop"}, decode(t, w))
}

type stubReloader struct{ err error }

func (s stubReloader) Reload() (*config.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	return config.Default(), nil
}

func TestReloadConfig(t *testing.T) {
	assert.Equal(t, http.StatusNotImplemented, newFixture(t, nil).do(http.MethodPost, "/v1/config/reload", "").Code)

	w := newFixture(t, stubReloader{}).do(http.MethodPost, "/v1/config/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "capture", decode(t, w)["phase"])

	w = newFixture(t, stubReloader{err: errors.New("bad yaml")}).do(http.MethodPost, "/v1/config/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	w := f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decode(t, w)["status"])

	w = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clicktrail_records_emitted_total")
}

func TestRequestLogging_UsesInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixtureWithLogger(t, nil, logger)

	w := f.do(http.MethodGet, "/v1/page", "")
	require.Equal(t, http.StatusOK, w.Code)

	line := buf.String()
	assert.Contains(t, line, `msg="http request"`)
	assert.Contains(t, line, "method=GET")
	assert.Contains(t, line, "path=/v1/page")
	assert.Contains(t, line, "status=200")
}
