package application

import (
	"time"

	calibration "channel-calibration/internal/calibration/domain"
)

// Layout is the sheet shape handled by a run.
type Layout string

const (
	LayoutMatrix Layout = "matrix"
	LayoutFlat   Layout = "flat"
)

// SheetStatus is the outcome of one sheet.
type SheetStatus string

const (
	SheetSucceeded  SheetStatus = "succeeded"
	SheetUnresolved SheetStatus = "unresolved"
	SheetSkipped    SheetStatus = "skipped"
	SheetFailed     SheetStatus = "failed"
)

// SheetReport records what happened to one sheet.
type SheetReport struct {
	Label          string
	Status         SheetStatus
	Reason         error
	ChannelID      string
	ChannelName    string
	Offsets        int
	Applied        int
	Created        int
	Updated        int
	BlankCells     int
	MalformedCells int
	StoreErrors    int
}

// ChannelCount is a point count for one channel.
type ChannelCount struct {
	ChannelID string
	Name      string
	Count     int
}

// ChannelSample holds the lowest stored points of a channel.
type ChannelSample struct {
	ChannelName string
	Points      []calibration.Point
}

// RunSummary is the structured result of an ingestion run.
type RunSummary struct {
	Source        string
	Layout        Layout
	Cleared       bool
	ClearedPoints int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Interrupted   bool
	TotalApplied  int
	Sheets        []SheetReport
	// Processed lists channels with points applied in this run, in sheet order.
	Processed []ChannelCount
	// Stored lists every channel's point total after the run.
	Stored  []ChannelCount
	Samples []ChannelSample
}

// SkippedLabels returns labels of sheets that did not succeed.
func (s *RunSummary) SkippedLabels() []string {
	var labels []string
	for _, sheet := range s.Sheets {
		if sheet.Status != SheetSucceeded {
			labels = append(labels, sheet.Label)
		}
	}
	return labels
}

// CountByStatus counts sheets with the given status.
func (s *RunSummary) CountByStatus(status SheetStatus) int {
	count := 0
	for _, sheet := range s.Sheets {
		if sheet.Status == status {
			count++
		}
	}
	return count
}

// Duration returns the wall time of the run.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
