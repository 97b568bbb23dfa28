package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	calibration "channel-calibration/internal/calibration/domain"
	pointmemory "channel-calibration/internal/calibration/infrastructure/memory"
	masterdata "channel-calibration/internal/masterdata/domain"
	"channel-calibration/internal/masterdata/infrastructure/memory"
)

type fakeWorkbook struct {
	names   []string
	sheets  map[string]calibration.Sheet
	failing map[string]error
	closed  bool
}

func newFakeWorkbook() *fakeWorkbook {
	return &fakeWorkbook{sheets: map[string]calibration.Sheet{}, failing: map[string]error{}}
}

func (w *fakeWorkbook) add(name string, headers []string, rows ...[]string) *fakeWorkbook {
	sheet := calibration.Sheet{Name: name, Headers: headers}
	for i, cells := range rows {
		sheet.Rows = append(sheet.Rows, calibration.Row{Number: i + 2, Cells: cells})
	}
	w.names = append(w.names, name)
	w.sheets[name] = sheet
	return w
}

func (w *fakeWorkbook) fail(name string, err error) *fakeWorkbook {
	w.names = append(w.names, name)
	w.failing[name] = err
	return w
}

func (w *fakeWorkbook) SheetNames() []string { return w.names }

func (w *fakeWorkbook) ReadSheet(name string) (calibration.Sheet, error) {
	if err := w.failing[name]; err != nil {
		return calibration.Sheet{}, err
	}
	sheet, ok := w.sheets[name]
	if !ok {
		return calibration.Sheet{}, fmt.Errorf("sheet %q not found", name)
	}
	return sheet, nil
}

func (w *fakeWorkbook) Close() error {
	w.closed = true
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type ingestFixture struct {
	service  *IngestService
	points   *pointmemory.PointRepository
	workbook *fakeWorkbook
	opened   []string
}

func newIngestFixture(t *testing.T, workbook *fakeWorkbook, channels masterdata.ChannelRepository) *ingestFixture {
	t.Helper()
	f := &ingestFixture{points: pointmemory.NewPointRepository(), workbook: workbook}
	open := func(path string) (Workbook, error) {
		f.opened = append(f.opened, path)
		if f.workbook == nil {
			return nil, fmt.Errorf("%w: open %s", calibration.ErrSourceUnavailable, path)
		}
		return f.workbook, nil
	}
	service, err := NewIngestService(
		open,
		channels,
		f.points,
		NewAliasTable(DefaultAliases()),
		fixedClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
		nil,
	)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}
	f.service = service
	return f
}

func (f *ingestFixture) seed(t *testing.T, channelID string, samples ...calibration.Sample) {
	t.Helper()
	for _, sample := range samples {
		point := &calibration.Point{ChannelID: channelID, Height: sample.Height, Value: sample.Value}
		if err := f.points.Create(context.Background(), point); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func findSheet(t *testing.T, summary *RunSummary, label string) SheetReport {
	t.Helper()
	for _, sheet := range summary.Sheets {
		if sheet.Label == label {
			return sheet
		}
	}
	t.Fatalf("sheet %q not in summary", label)
	return SheetReport{}
}

func TestNewIngestService_RequiresDeps(t *testing.T) {
	channels := memory.NewChannelRepository()
	points := pointmemory.NewPointRepository()
	open := func(string) (Workbook, error) { return nil, nil }

	if _, err := NewIngestService(nil, channels, points, AliasTable{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil opener")
	}
	if _, err := NewIngestService(open, nil, points, AliasTable{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil channel repository")
	}
	if _, err := NewIngestService(open, channels, nil, AliasTable{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil point repository")
	}
}

func TestRunMatrix_MixedWorkbook(t *testing.T) {
	workbook := newFakeWorkbook().
		add("Çeltek Regülatörü", []string{"Kot", "0", "0.01", "Not"},
			[]string{"150.00", "5.0", "5.2", "x"},
			[]string{"150.10", "6.0", "abc"},
		).
		add("Kızılırmak Sol Sahil", []string{"Kot", "0"}, []string{"10", "1"}).
		add("Suluova Solsahil S1 Ana Kanalı", []string{"Kot", "0"}).
		add("Suluova Solsahil S2 Ana Kanalı", []string{"Kot", "Açıklama"}, []string{"10", "1"}).
		fail("Bozuk", errors.New("zip: not a valid zip file"))

	f := newIngestFixture(t, workbook, newTestChannels())
	summary, err := f.service.RunMatrix(context.Background(), "kanal_abaklar.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !workbook.closed {
		t.Fatalf("workbook should be closed after run")
	}
	if len(summary.Sheets) != 5 {
		t.Fatalf("expected 5 sheet reports, got %d", len(summary.Sheets))
	}

	celtek := findSheet(t, summary, "Çeltek Regülatörü")
	if celtek.Status != SheetSucceeded || celtek.ChannelID != "ch-celtek" {
		t.Fatalf("unexpected celtek report: %+v", celtek)
	}
	if celtek.Applied != 3 || celtek.Created != 3 || celtek.MalformedCells != 1 || celtek.Offsets != 2 {
		t.Fatalf("unexpected celtek counts: %+v", celtek)
	}

	if got := findSheet(t, summary, "Kızılırmak Sol Sahil"); got.Status != SheetUnresolved || !errors.Is(got.Reason, calibration.ErrChannelNotFound) {
		t.Fatalf("expected unresolved sheet, got %+v", got)
	}
	if got := findSheet(t, summary, "Suluova Solsahil S1 Ana Kanalı"); got.Status != SheetSkipped || !errors.Is(got.Reason, calibration.ErrEmptySheet) {
		t.Fatalf("expected skipped empty sheet, got %+v", got)
	}
	if got := findSheet(t, summary, "Suluova Solsahil S2 Ana Kanalı"); got.Status != SheetFailed || !errors.Is(got.Reason, calibration.ErrInsufficientColumns) {
		t.Fatalf("expected failed sheet without offsets, got %+v", got)
	}
	if got := findSheet(t, summary, "Bozuk"); got.Status != SheetFailed {
		t.Fatalf("expected read failure, got %+v", got)
	}

	if summary.TotalApplied != 3 {
		t.Fatalf("expected total 3, got %d", summary.TotalApplied)
	}
	if len(summary.Processed) != 1 || summary.Processed[0].ChannelID != "ch-celtek" || summary.Processed[0].Count != 3 {
		t.Fatalf("unexpected processed: %+v", summary.Processed)
	}
	if len(summary.Stored) != 1 || summary.Stored[0].Count != 3 {
		t.Fatalf("unexpected stored: %+v", summary.Stored)
	}
	if len(summary.Samples) != 1 || len(summary.Samples[0].Points) != 3 {
		t.Fatalf("unexpected samples: %+v", summary.Samples)
	}
	if summary.Samples[0].Points[0].Height != 150 || summary.Samples[0].Points[1].Height != 150.01 {
		t.Fatalf("samples should be lowest heights first: %+v", summary.Samples[0].Points)
	}
	if skipped := summary.SkippedLabels(); len(skipped) != 4 {
		t.Fatalf("expected 4 skipped labels, got %v", skipped)
	}
	if summary.CountByStatus(SheetFailed) != 2 {
		t.Fatalf("expected 2 failed sheets, got %d", summary.CountByStatus(SheetFailed))
	}
	if summary.Duration() != 0 {
		t.Fatalf("fixed clock should give zero duration, got %v", summary.Duration())
	}
}

func TestRunMatrix_RerunIsIdempotent(t *testing.T) {
	workbook := newFakeWorkbook().add("Sheet1", []string{"Kot", "0", "0.05"},
		[]string{"149.9", "1", "1.5"},
		[]string{"150", "2", "2.5"},
	)
	f := newIngestFixture(t, workbook, newTestChannels())

	first, err := f.service.RunMatrix(context.Background(), "a.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := f.service.RunMatrix(context.Background(), "a.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Sheets[0].Created != 4 || second.Sheets[0].Created != 0 || second.Sheets[0].Updated != 4 {
		t.Fatalf("unexpected counts: first=%+v second=%+v", first.Sheets[0], second.Sheets[0])
	}
	if second.Stored[0].Count != 4 {
		t.Fatalf("rerun should not add points, stored=%+v", second.Stored)
	}
}

func TestRunMatrix_ClearRemovesOtherChannels(t *testing.T) {
	workbook := newFakeWorkbook().add("Sheet1", []string{"Kot", "0"}, []string{"150", "1"})
	f := newIngestFixture(t, workbook, newTestChannels())
	f.seed(t, "ch-s1", calibration.Sample{Height: 1, Value: 1}, calibration.Sample{Height: 2, Value: 2})

	summary, err := f.service.RunMatrix(context.Background(), "a.xlsx", RunOptions{Clear: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.Cleared || summary.ClearedPoints != 2 {
		t.Fatalf("expected 2 cleared points, got %+v", summary)
	}
	counts, _ := f.points.CountByChannel(context.Background())
	if counts["ch-s1"] != 0 || counts["ch-celtek"] != 1 {
		t.Fatalf("unexpected counts after clear: %v", counts)
	}
}

func TestRunMatrix_SourceUnavailableDoesNotClear(t *testing.T) {
	f := newIngestFixture(t, nil, newTestChannels())
	f.seed(t, "ch-s1", calibration.Sample{Height: 1, Value: 1})

	summary, err := f.service.RunMatrix(context.Background(), "missing.xlsx", RunOptions{Clear: true})
	if !errors.Is(err, calibration.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if summary.Cleared {
		t.Fatalf("store must not be cleared when the workbook is unavailable")
	}
	if len(f.opened) != 1 || f.opened[0] != "missing.xlsx" {
		t.Fatalf("unexpected open calls: %v", f.opened)
	}
	counts, _ := f.points.CountByChannel(context.Background())
	if counts["ch-s1"] != 1 {
		t.Fatalf("existing points were touched: %v", counts)
	}
}

func TestRunMatrix_WrapsOpenerErrors(t *testing.T) {
	service, err := NewIngestService(
		func(string) (Workbook, error) { return nil, errors.New("permission denied") },
		newTestChannels(),
		pointmemory.NewPointRepository(),
		AliasTable{},
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}
	if _, err := service.RunMatrix(context.Background(), "x.xlsx", RunOptions{}); !errors.Is(err, calibration.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRunMatrix_NoPointsIsFailure(t *testing.T) {
	workbook := newFakeWorkbook().add("Sheet1", []string{"Kot", "0"}, []string{"150", ""}, []string{"", "3"})
	f := newIngestFixture(t, workbook, newTestChannels())

	summary, err := f.service.RunMatrix(context.Background(), "a.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sheet := summary.Sheets[0]
	if sheet.Status != SheetFailed || !errors.Is(sheet.Reason, calibration.ErrNoPoints) {
		t.Fatalf("expected no-points failure, got %+v", sheet)
	}
	if sheet.BlankCells != 2 {
		t.Fatalf("expected 2 blank cells, got %d", sheet.BlankCells)
	}
	if summary.Samples != nil {
		t.Fatalf("no samples expected when nothing was applied")
	}
}

func TestRunMatrix_CancelledBetweenSheets(t *testing.T) {
	workbook := newFakeWorkbook().
		add("Sheet1", []string{"Kot", "0"}, []string{"150", "1"}).
		add("Suluova Solsahil S1 Ana Kanalı", []string{"Kot", "0"}, []string{"10", "1"})
	f := newIngestFixture(t, workbook, newTestChannels())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := f.service.RunMatrix(ctx, "a.xlsx", RunOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !summary.Interrupted || len(summary.Sheets) != 0 {
		t.Fatalf("expected interrupted run with no sheets, got %+v", summary)
	}
}

func TestRunFlat_DefaultChannel(t *testing.T) {
	workbook := newFakeWorkbook().add("Sayfa1", []string{"Hacim", "Yükseklik"},
		[]string{"12,5", "150,25"},
		[]string{"13", "150.3"},
		[]string{"", "150.4"},
	)
	f := newIngestFixture(t, workbook, newTestChannels())

	summary, err := f.service.RunFlat(context.Background(), "kanal_abak.xlsx", RunOptions{DefaultChannel: "ÇELTEK"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sheet := summary.Sheets[0]
	if sheet.Status != SheetSucceeded || sheet.ChannelID != "ch-celtek" || sheet.Applied != 2 || sheet.BlankCells != 1 {
		t.Fatalf("unexpected flat report: %+v", sheet)
	}
	point, err := f.points.FindByChannelAndHeight(context.Background(), "ch-celtek", 150.25)
	if err != nil || point == nil || point.Value != 12.5 {
		t.Fatalf("expected point at 150.25=12.5, got %+v err=%v", point, err)
	}
}

func TestRunFlat_SingleChannelFallback(t *testing.T) {
	workbook := newFakeWorkbook().add("Sayfa1", []string{"A", "B"}, []string{"1", "2"})
	only := masterdata.Channel{ID: "ch-only", Name: "KIZILIRMAK ANA KANALI"}
	f := newIngestFixture(t, workbook, memory.NewChannelRepository(only))

	summary, err := f.service.RunFlat(context.Background(), "kanal_abak.xlsx", RunOptions{DefaultChannel: "ÇELTEK"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Sheets[0].Status != SheetSucceeded || summary.Sheets[0].ChannelID != "ch-only" {
		t.Fatalf("expected fallback to the only channel, got %+v", summary.Sheets[0])
	}
}

func TestRunFlat_NoChannelMatch(t *testing.T) {
	workbook := newFakeWorkbook().add("Sayfa1", []string{"h", "q"}, []string{"1", "2"})
	f := newIngestFixture(t, workbook, newTestChannels())

	summary, err := f.service.RunFlat(context.Background(), "kanal_abak.xlsx", RunOptions{DefaultChannel: "YEŞİLIRMAK"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Sheets[0].Status != SheetUnresolved {
		t.Fatalf("expected unresolved, got %+v", summary.Sheets[0])
	}
}

func TestClearChannelAndCurve(t *testing.T) {
	f := newIngestFixture(t, newFakeWorkbook(), newTestChannels())
	f.seed(t, "ch-celtek", calibration.Sample{Height: 2, Value: 20}, calibration.Sample{Height: 1, Value: 10})
	f.seed(t, "ch-s1", calibration.Sample{Height: 1, Value: 1})
	ctx := context.Background()

	channel, points, err := f.service.Curve(ctx, "çeltek")
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	if channel.ID != "ch-celtek" || len(points) != 2 || points[0].Height != 1 {
		t.Fatalf("unexpected curve: %+v %+v", channel, points)
	}

	channel, deleted, err := f.service.ClearChannel(ctx, "Suluova Solsahil S1")
	if err != nil {
		t.Fatalf("clear channel: %v", err)
	}
	if channel.ID != "ch-s1" || deleted != 1 {
		t.Fatalf("unexpected clear: %+v deleted=%d", channel, deleted)
	}
	counts, _ := f.points.CountByChannel(ctx)
	if counts["ch-celtek"] != 2 || counts["ch-s1"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	if _, _, err := f.service.ClearChannel(ctx, "Yok"); !errors.Is(err, calibration.ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestRunMatrix_StoreErrorKeepsAppliedPoints(t *testing.T) {
	workbook := newFakeWorkbook().add("Sheet1", []string{"Kot", "0", "0.01", "0.02", "0.03"},
		[]string{"150", "1", "2", "3", "4"},
	)
	store := &flakyPoints{PointRepository: pointmemory.NewPointRepository(), failOn: 3}
	service, err := NewIngestService(
		func(string) (Workbook, error) { return workbook, nil },
		newTestChannels(),
		store,
		NewAliasTable(DefaultAliases()),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}

	summary, err := service.RunMatrix(context.Background(), "a.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sheet := summary.Sheets[0]
	if sheet.Status != SheetSucceeded || sheet.Applied != 3 || sheet.StoreErrors != 1 {
		t.Fatalf("unexpected report: %+v", sheet)
	}
	if !errors.Is(sheet.Reason, errStoreDown) {
		t.Fatalf("store error should be kept as reason, got %v", sheet.Reason)
	}
	if summary.TotalApplied != 3 || len(summary.Processed) != 1 || summary.Processed[0].Count != 3 {
		t.Fatalf("applied points missing from totals: total=%d processed=%+v", summary.TotalApplied, summary.Processed)
	}
	if len(summary.Stored) != 1 || summary.Stored[0].Count != summary.TotalApplied {
		t.Fatalf("stored %+v does not match applied %d", summary.Stored, summary.TotalApplied)
	}
}

func TestRunMatrix_AllPointsRejectedFailsSheet(t *testing.T) {
	workbook := newFakeWorkbook().add("Sheet1", []string{"Kot", "0"}, []string{"150", "1"})
	store := &flakyPoints{PointRepository: pointmemory.NewPointRepository(), failOn: 1}
	service, err := NewIngestService(
		func(string) (Workbook, error) { return workbook, nil },
		newTestChannels(),
		store,
		NewAliasTable(DefaultAliases()),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}

	summary, err := service.RunMatrix(context.Background(), "a.xlsx", RunOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sheet := summary.Sheets[0]
	if sheet.Status != SheetFailed || !errors.Is(sheet.Reason, errStoreDown) || sheet.StoreErrors != 1 {
		t.Fatalf("unexpected report: %+v", sheet)
	}
	if summary.TotalApplied != 0 {
		t.Fatalf("expected no applied points, got %d", summary.TotalApplied)
	}
}
