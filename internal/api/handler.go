package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/clicktrail/internal/config"
	"github.com/gyaneshwarpardhi/clicktrail/internal/dom"
	"github.com/gyaneshwarpardhi/clicktrail/internal/eventloop"
	"github.com/gyaneshwarpardhi/clicktrail/internal/metrics"
)

const maxBatchSize = 100

// Reloader re-reads configuration on demand.
type Reloader interface {
	Reload() (*config.Config, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	page     *dom.Page
	loop     *eventloop.Loop
	reloader Reloader
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes. reloader may be nil;
// a nil logger falls back to slog.Default.
func New(page *dom.Page, loop *eventloop.Loop, reloader Reloader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{page: page, loop: loop, reloader: reloader, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/clicks", h.click)
	h.mux.HandleFunc("POST /v1/clicks/batch", h.clickBatch)
	h.mux.HandleFunc("GET /v1/page", h.pageInfo)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.logger, h.mux)
}

type clickRequest struct {
	Selector string `json:"selector"`
}

type clickResponse struct {
	DispatchID string  `json:"dispatch_id"`
	Selector   string  `json:"selector"`
	Tag        string  `json:"tag"`
	DurationMs float64 `json:"duration_ms"`
}

// POST /v1/clicks: dispatch one click and wait for every listener to run.
func (h *Handler) click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	target, status, err := h.resolve(req.Selector)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	start := time.Now()
	err = h.loop.Do(r.Context(), func(context.Context) error {
		return h.page.Document().Click(target)
	})
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	switch {
	case errors.Is(err, eventloop.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, eventloop.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("dispatch: %s", err))
		return
	}
	metrics.DispatchDuration.Observe(elapsed)

	writeJSON(w, http.StatusOK, clickResponse{
		DispatchID: uuid.New().String(),
		Selector:   req.Selector,
		Tag:        target.TagName(),
		DurationMs: elapsed,
	})
}

// POST /v1/clicks/batch: queue up to 100 clicks, dispatched in order.
func (h *Handler) clickBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []clickRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one click")
		return
	}
	if len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(reqs), maxBatchSize))
		return
	}

	doc := h.page.Document()
	queued := 0
	var unresolved []string
	for _, req := range reqs {
		target, _, err := h.resolve(req.Selector)
		if err != nil {
			unresolved = append(unresolved, req.Selector)
			continue
		}
		if h.loop.Submit(func(context.Context) error { return doc.Click(target) }) {
			queued++
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     uuid.New().String(),
		"total":      len(reqs),
		"queued":     queued,
		"rejected":   len(reqs) - queued,
		"unresolved": unresolved,
	})
}

// resolve maps a selector to an element, returning the HTTP status to use
// on failure.
func (h *Handler) resolve(selector string) (*dom.Node, int, error) {
	if selector == "" {
		return nil, http.StatusBadRequest, errors.New("selector is required")
	}
	n, err := h.page.Document().Query(selector)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if n == nil {
		return nil, http.StatusNotFound, fmt.Errorf("%w: %s", dom.ErrNoMatch, selector)
	}
	return n, 0, nil
}

// GET /v1/page: location and title of the hosted page.
func (h *Handler) pageInfo(w http.ResponseWriter, r *http.Request) {
	u, err := h.page.CurrentURL()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	title, err := h.page.CurrentTitle()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u, "title": title})
}

// POST /v1/config/reload: re-read config from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeError(w, http.StatusNotImplemented, "config reload not available")
		return
	}
	cfg, err := h.reloader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"phase":    cfg.Tracker.Phase,
		"sink":     cfg.Tracker.Sink,
	})
}

// GET /healthz: always 200 while the process is up.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the event loop queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.loop.Utilization()
	metrics.LoopUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":           "overloaded",
			"loop_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ready",
		"loop_utilization": util,
	})
}
