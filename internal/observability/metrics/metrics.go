package metrics

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricPrefix = "calibration_"

	resultSuccess = "success"
	resultError   = "error"

	pushJob = "calibration_ingest"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	runsTotal  *prometheus.CounterVec
	runLatency *prometheus.HistogramVec

	sheetsTotal  *prometheus.CounterVec
	pointsTotal  *prometheus.CounterVec
	skippedCells *prometheus.CounterVec
	clearedTotal prometheus.Counter
)

// Option configures Init.
type Option func(*initOptions)

type initOptions struct {
	pointsTable string
}

// WithPointsTable points the DB gauges at a non-default calibration point table.
func WithPointsTable(table string) Option {
	return func(o *initOptions) {
		if table != "" {
			o.pointsTable = table
		}
	}
}

// Init registers ingestion metrics and, when db is set, a stored-points gauge.
func Init(db *sql.DB, logger *log.Logger, opts ...Option) {
	options := initOptions{pointsTable: defaultPointsTable}
	for _, opt := range opts {
		opt(&options)
	}
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total ingestion runs by layout and result",
			},
			[]string{"layout", "result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Ingestion run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"layout"},
		)
		sheetsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sheets_total",
				Help: "Total processed sheets by status",
			},
			[]string{"status"},
		)
		pointsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "points_total",
				Help: "Total applied calibration points by action",
			},
			[]string{"action"},
		)
		skippedCells = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "skipped_cells_total",
				Help: "Total skipped cells by reason",
			},
			[]string{"reason"},
		)
		clearedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "cleared_points_total",
				Help: "Total points removed by clear requests",
			},
		)

		registry.MustRegister(
			runsTotal,
			runLatency,
			sheetsTotal,
			pointsTotal,
			skippedCells,
			clearedTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger, options.pointsTable)
		}
	})
}

// Registry exposes the collector registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveRun records run duration and result.
func ObserveRun(layout, result string, duration time.Duration) {
	if layout == "" {
		layout = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(layout, result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(layout).Observe(duration.Seconds())
	}
}

// IncSheet increments the sheet counter for status.
func IncSheet(status string) {
	if status == "" {
		status = "unknown"
	}
	if sheetsTotal != nil {
		sheetsTotal.WithLabelValues(status).Inc()
	}
}

// AddPoints adds count points for action (created/updated/failed).
func AddPoints(action string, count int) {
	if count <= 0 {
		return
	}
	if pointsTotal != nil {
		pointsTotal.WithLabelValues(action).Add(float64(count))
	}
}

// AddSkippedCells adds count skipped cells for reason.
func AddSkippedCells(reason string, count int) {
	if count <= 0 {
		return
	}
	if skippedCells != nil {
		skippedCells.WithLabelValues(reason).Add(float64(count))
	}
}

// AddCleared adds count removed points.
func AddCleared(count int64) {
	if count <= 0 {
		return
	}
	if clearedTotal != nil {
		clearedTotal.Add(float64(count))
	}
}

// Push sends the registry to a Prometheus Pushgateway.
func Push(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("metrics: empty pushgateway url")
	}
	return push.New(url, pushJob).Gatherer(registry).PushContext(ctx)
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionFailed  = "failed"

	ReasonBlank     = "blank"
	ReasonMalformed = "malformed"
)
