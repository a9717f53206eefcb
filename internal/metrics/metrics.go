package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicktrail_records_emitted_total",
		Help: "Total number of activity records written to the sink, labelled by event.",
	}, []string{"event"})

	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicktrail_sink_errors_total",
		Help: "Total number of records the sink failed to accept, labelled by event.",
	}, []string{"event"})

	ClicksIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicktrail_clicks_ignored_total",
		Help: "Total number of clicks on the body or document element that produced no record.",
	})

	DispatchesEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicktrail_dispatches_enqueued_total",
		Help: "Total number of tasks placed on the page event loop.",
	})

	DispatchesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicktrail_dispatches_dropped_total",
		Help: "Total number of tasks rejected due to a full event loop queue.",
	})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clicktrail_dispatch_duration_ms",
		Help:    "Time spent dispatching a single click through the page, in milliseconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	})

	LoopUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clicktrail_loop_utilization_ratio",
		Help: "Current event loop queue utilization (0–1).",
	})
)
