package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	calibration "channel-calibration/internal/calibration/domain"
	masterdata "channel-calibration/internal/masterdata/domain"
	"channel-calibration/internal/observability/metrics"
)

const (
	sampleChannels = 3
	samplePoints   = 3
)

// Workbook is a source of calibration sheets.
type Workbook interface {
	SheetNames() []string
	ReadSheet(name string) (calibration.Sheet, error)
	Close() error
}

// WorkbookOpener opens a workbook by path. Failures wrap calibration.ErrSourceUnavailable.
type WorkbookOpener func(path string) (Workbook, error)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RunOptions controls a run.
type RunOptions struct {
	// Clear deletes every stored point before the first sheet.
	Clear bool
	// DefaultChannel is the name fragment used by flat runs.
	DefaultChannel string
}

// IngestService drives workbook ingestion sheet by sheet.
type IngestService struct {
	open     WorkbookOpener
	channels masterdata.ChannelRepository
	points   calibration.PointRepository
	resolver *ChannelResolver
	upserter *Upserter
	clock    Clock
	logger   *log.Logger
}

// NewIngestService constructs the service.
func NewIngestService(
	open WorkbookOpener,
	channels masterdata.ChannelRepository,
	points calibration.PointRepository,
	aliases AliasTable,
	clock Clock,
	logger *log.Logger,
) (*IngestService, error) {
	if open == nil {
		return nil, errors.New("ingest service: nil workbook opener")
	}
	if channels == nil {
		return nil, errors.New("ingest service: nil channel repository")
	}
	if points == nil {
		return nil, errors.New("ingest service: nil point repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	resolver, err := NewChannelResolver(channels, aliases)
	if err != nil {
		return nil, err
	}
	upserter, err := NewUpserter(points)
	if err != nil {
		return nil, err
	}
	return &IngestService{
		open:     open,
		channels: channels,
		points:   points,
		resolver: resolver,
		upserter: upserter,
		clock:    clock,
		logger:   logger,
	}, nil
}

// RunMatrix ingests a multi-sheet workbook of matrix-shaped sheets, resolving
// each sheet label through the alias table.
func (s *IngestService) RunMatrix(ctx context.Context, path string, opts RunOptions) (*RunSummary, error) {
	return s.run(ctx, path, LayoutMatrix, opts)
}

// RunFlat ingests flat height/value sheets into the default channel.
func (s *IngestService) RunFlat(ctx context.Context, path string, opts RunOptions) (*RunSummary, error) {
	return s.run(ctx, path, LayoutFlat, opts)
}

// ClearAll deletes every stored point.
func (s *IngestService) ClearAll(ctx context.Context) (int64, error) {
	deleted, err := s.points.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear points: %w", err)
	}
	metrics.AddCleared(deleted)
	s.logger.Printf("calibration points cleared: deleted=%d", deleted)
	return deleted, nil
}

// ClearChannel deletes the points of the channel resolved from fragment.
func (s *IngestService) ClearChannel(ctx context.Context, fragment string) (masterdata.Channel, int64, error) {
	res, err := s.resolver.Resolve(ctx, fragment)
	if err != nil {
		return masterdata.Channel{}, 0, err
	}
	deleted, err := s.points.DeleteByChannel(ctx, res.Channel.ID)
	if err != nil {
		return res.Channel, 0, fmt.Errorf("clear channel %s: %w", res.Channel.ID, err)
	}
	metrics.AddCleared(deleted)
	s.logger.Printf("channel points cleared: channel=%q deleted=%d", res.Channel.Name, deleted)
	return res.Channel, deleted, nil
}

// Curve returns the stored points of the channel resolved from fragment.
func (s *IngestService) Curve(ctx context.Context, fragment string) (masterdata.Channel, []calibration.Point, error) {
	res, err := s.resolver.Resolve(ctx, fragment)
	if err != nil {
		return masterdata.Channel{}, nil, err
	}
	points, err := s.points.ListByChannel(ctx, res.Channel.ID, 0)
	if err != nil {
		return res.Channel, nil, err
	}
	return res.Channel, points, nil
}

func (s *IngestService) run(ctx context.Context, path string, layout Layout, opts RunOptions) (*RunSummary, error) {
	summary := &RunSummary{Source: path, Layout: layout, StartedAt: s.clock.Now()}
	result := metrics.ResultSuccess
	defer func() {
		summary.FinishedAt = s.clock.Now()
		metrics.ObserveRun(string(layout), result, summary.Duration())
	}()

	workbook, err := s.open(path)
	if err != nil {
		result = metrics.ResultError
		if !errors.Is(err, calibration.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", calibration.ErrSourceUnavailable, err)
		}
		return summary, err
	}
	defer workbook.Close()

	if opts.Clear {
		deleted, err := s.ClearAll(ctx)
		if err != nil {
			result = metrics.ResultError
			return summary, err
		}
		summary.Cleared = true
		summary.ClearedPoints = deleted
	}

	names := workbook.SheetNames()
	s.logger.Printf("workbook opened: path=%s layout=%s sheets=%q", path, layout, names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			summary.Interrupted = true
			result = metrics.ResultError
			s.logger.Printf("run interrupted before sheet %q: %v", name, err)
			s.finish(ctx, summary)
			return summary, err
		}
		report := s.processSheet(ctx, workbook, name, layout, opts)
		summary.Sheets = append(summary.Sheets, report)
		metrics.IncSheet(string(report.Status))
		if report.Status == SheetSucceeded {
			summary.TotalApplied += report.Applied
			summary.Processed = append(summary.Processed, ChannelCount{
				ChannelID: report.ChannelID,
				Name:      report.ChannelName,
				Count:     report.Applied,
			})
		}
	}

	s.finish(ctx, summary)
	return summary, nil
}

func (s *IngestService) processSheet(ctx context.Context, workbook Workbook, name string, layout Layout, opts RunOptions) SheetReport {
	report := SheetReport{Label: name}

	sheet, err := workbook.ReadSheet(name)
	if err != nil {
		return s.reject(report, SheetFailed, err)
	}

	var res Resolution
	if layout == LayoutFlat {
		res, err = s.resolver.ResolveWithFallback(ctx, opts.DefaultChannel)
	} else {
		res, err = s.resolver.Resolve(ctx, name)
	}
	if err != nil {
		if errors.Is(err, calibration.ErrChannelNotFound) {
			s.logExistingChannels(ctx)
			return s.reject(report, SheetUnresolved, err)
		}
		return s.reject(report, SheetFailed, err)
	}
	report.ChannelID = res.Channel.ID
	report.ChannelName = res.Channel.Name
	s.logger.Printf("channel matched: sheet=%q fragment=%q channel=%q aliased=%t fallback=%t",
		name, res.Fragment, res.Channel.Name, res.Aliased, res.Fallback)

	if len(sheet.Rows) == 0 {
		return s.reject(report, SheetSkipped, fmt.Errorf("%w: %q", calibration.ErrEmptySheet, name))
	}

	var flat calibration.Flattened
	if layout == LayoutFlat {
		cols, err := calibration.ClassifyFlat(sheet.Headers)
		if err != nil {
			return s.reject(report, SheetFailed, err)
		}
		s.logger.Printf("columns classified: sheet=%q height=%d value=%d by_name=%t", name, cols.HeightColumn, cols.ValueColumn, cols.ByName)
		flat = calibration.FlattenFlat(cols, sheet.Rows)
	} else {
		cols, err := calibration.ClassifyMatrix(sheet.Headers)
		if err != nil {
			return s.reject(report, SheetFailed, err)
		}
		report.Offsets = len(cols.Offsets)
		s.logger.Printf("columns classified: sheet=%q offsets=%d", name, len(cols.Offsets))
		flat = calibration.FlattenMatrix(cols, sheet.Rows)
	}
	report.BlankCells, report.MalformedCells = flat.SkipCounts()
	metrics.AddSkippedCells(metrics.ReasonBlank, report.BlankCells)
	metrics.AddSkippedCells(metrics.ReasonMalformed, report.MalformedCells)
	for _, skip := range flat.Skipped {
		if errors.Is(skip.Reason, calibration.ErrMalformedCell) {
			s.logger.Printf("cell skipped: sheet=%q row=%d column=%d raw=%q", name, skip.Row, skip.Column, skip.Raw)
		}
	}

	applied, err := s.upserter.Apply(ctx, res.Channel.ID, flat.Samples)
	report.Applied, report.Created, report.Updated = applied.Applied, applied.Created, applied.Updated
	report.StoreErrors = applied.Failed
	metrics.AddPoints(metrics.ActionCreated, applied.Created)
	metrics.AddPoints(metrics.ActionUpdated, applied.Updated)
	metrics.AddPoints(metrics.ActionFailed, applied.Failed)
	if applied.Applied == 0 {
		if err == nil {
			err = fmt.Errorf("%w: %q", calibration.ErrNoPoints, name)
		}
		return s.reject(report, SheetFailed, err)
	}
	if err != nil {
		// Points already written stay counted; the sheet keeps the store error as its reason.
		report.Reason = err
		s.logger.Printf("store errors: sheet=%q channel=%q failed=%d err=%v", name, report.ChannelName, applied.Failed, err)
	}

	report.Status = SheetSucceeded
	s.logger.Printf("sheet processed: sheet=%q channel=%q applied=%d created=%d updated=%d blank=%d malformed=%d store_errors=%d",
		name, report.ChannelName, report.Applied, report.Created, report.Updated, report.BlankCells, report.MalformedCells, report.StoreErrors)
	return report
}

func (s *IngestService) reject(report SheetReport, status SheetStatus, reason error) SheetReport {
	report.Status = status
	report.Reason = reason
	s.logger.Printf("sheet %s: sheet=%q reason=%v", status, report.Label, reason)
	return report
}

func (s *IngestService) logExistingChannels(ctx context.Context) {
	channels, err := s.channels.ListAll(ctx)
	if err != nil {
		return
	}
	names := make([]string, 0, len(channels))
	for _, channel := range channels {
		names = append(names, channel.Name)
	}
	s.logger.Printf("existing channels: %s", strings.Join(names, ", "))
}

// finish fills store-wide totals and samples. Failures here are logged only.
func (s *IngestService) finish(ctx context.Context, summary *RunSummary) {
	if ctx.Err() != nil {
		return
	}
	channels, err := s.channels.ListAll(ctx)
	if err != nil {
		s.logger.Printf("summary channels failed: %v", err)
		return
	}
	counts, err := s.points.CountByChannel(ctx)
	if err != nil {
		s.logger.Printf("summary counts failed: %v", err)
		return
	}
	for _, channel := range channels {
		if counts[channel.ID] == 0 {
			continue
		}
		summary.Stored = append(summary.Stored, ChannelCount{ChannelID: channel.ID, Name: channel.Name, Count: counts[channel.ID]})
	}

	if summary.TotalApplied == 0 {
		return
	}
	for _, stored := range summary.Stored {
		if len(summary.Samples) == sampleChannels {
			break
		}
		points, err := s.points.ListByChannel(ctx, stored.ChannelID, samplePoints)
		if err != nil {
			s.logger.Printf("summary samples failed: channel=%q err=%v", stored.Name, err)
			continue
		}
		summary.Samples = append(summary.Samples, ChannelSample{ChannelName: stored.Name, Points: points})
	}
}
