package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultPointsTable = "channel_calibration_points"
	dbQueryTimeout     = 2 * time.Second
)

type dbQueries struct {
	storedPoints       string
	calibratedChannels string
}

func newDBQueries(pointsTable string) dbQueries {
	if pointsTable == "" {
		pointsTable = defaultPointsTable
	}
	return dbQueries{
		storedPoints:       fmt.Sprintf("SELECT COUNT(*) FROM %s", pointsTable),
		calibratedChannels: fmt.Sprintf("SELECT COUNT(DISTINCT channel_id) FROM %s", pointsTable),
	}
}

func registerDBMetrics(db *sql.DB, logger *log.Logger, pointsTable string) {
	queries := newDBQueries(pointsTable)

	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "stored_points",
			Help: "Calibration points currently stored",
		},
		func() float64 {
			return queryCount(db, logger, queries.storedPoints)
		},
	))

	registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "calibrated_channels",
			Help: "Channels that have at least one calibration point",
		},
		func() float64 {
			return queryCount(db, logger, queries.calibratedChannels)
		},
	))
}

// queryCount runs a COUNT query bounded by dbQueryTimeout; failures read as 0.
func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbQueryTimeout)
	defer cancel()

	var count int64
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: query=%q err=%v", query, err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
