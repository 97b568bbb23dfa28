package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	calibrationapp "channel-calibration/internal/calibration/application"
	calibration "channel-calibration/internal/calibration/domain"
	"channel-calibration/internal/calibration/infrastructure/excel"
	pointrepo "channel-calibration/internal/calibration/infrastructure/postgres"
	channelrepo "channel-calibration/internal/masterdata/infrastructure/postgres"
	"channel-calibration/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cliApp{logger: logger}
	defer app.close()

	if err := rootCommand(app).ExecuteContext(ctx); err != nil {
		logger.Printf("error: %v", err)
		app.close()
		if errors.Is(err, calibration.ErrSourceUnavailable) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// cliApp holds the wiring shared by subcommands. It is built lazily so that
// flag errors and help output do not need a database.
type cliApp struct {
	logger  *log.Logger
	cfg     calibrationapp.Config
	db      *sql.DB
	service *calibrationapp.IngestService
}

func (a *cliApp) setup() error {
	if a.service != nil {
		return nil
	}
	cfg, err := calibrationapp.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL or PG_DSN must be set")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db

	metrics.Init(db, a.logger, metrics.WithPointsTable(cfg.Tables.Points))

	var channelOpts []channelrepo.ChannelOption
	if cfg.Tables.Channels != "" {
		channelOpts = append(channelOpts, channelrepo.WithChannelTable(cfg.Tables.Channels))
	}
	var pointOpts []pointrepo.PointOption
	if cfg.Tables.Points != "" {
		pointOpts = append(pointOpts, pointrepo.WithPointTable(cfg.Tables.Points))
	}

	service, err := calibrationapp.NewIngestService(
		openWorkbook,
		channelrepo.NewChannelRepository(db, channelOpts...),
		pointrepo.NewPointRepository(db, pointOpts...),
		cfg.AliasTable(),
		calibrationapp.SystemClock{},
		a.logger,
	)
	if err != nil {
		return err
	}
	a.service = service
	return nil
}

func (a *cliApp) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *cliApp) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := metrics.Push(ctx, a.cfg.PushgatewayURL); err != nil {
		a.logger.Printf("metrics push failed: %v", err)
	}
}

// ---- Adapters ----

func openWorkbook(path string) (calibrationapp.Workbook, error) {
	return excel.OpenWorkbook(path)
}
