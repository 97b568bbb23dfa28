package interfaces

import (
	"log"
	"strings"
	"time"

	"channel-calibration/internal/calibration/application"
)

// LogSummary writes a human-readable run summary.
func LogSummary(logger *log.Logger, summary *application.RunSummary) {
	if logger == nil {
		logger = log.Default()
	}
	if summary == nil {
		return
	}
	logger.Printf("run finished: source=%s layout=%s sheets=%d applied=%d duration=%s",
		summary.Source, summary.Layout, len(summary.Sheets), summary.TotalApplied, summary.Duration().Round(time.Millisecond))
	if summary.Cleared {
		logger.Printf("cleared before run: points=%d", summary.ClearedPoints)
	}
	if summary.Interrupted {
		logger.Printf("run interrupted after %d sheets", len(summary.Sheets))
	}

	for _, processed := range summary.Processed {
		logger.Printf("  %s: %d points", processed.Name, processed.Count)
	}
	for _, sheet := range summary.Sheets {
		if sheet.Status == application.SheetSucceeded && sheet.StoreErrors > 0 {
			logger.Printf("  %s: %d points not stored: %v", sheet.Label, sheet.StoreErrors, sheet.Reason)
		}
	}
	if skipped := summary.SkippedLabels(); len(skipped) > 0 {
		logger.Printf("skipped sheets: %s", strings.Join(skipped, ", "))
		for _, sheet := range summary.Sheets {
			if sheet.Status != application.SheetSucceeded {
				logger.Printf("  %s [%s]: %v", sheet.Label, sheet.Status, sheet.Reason)
			}
		}
	}

	for _, stored := range summary.Stored {
		logger.Printf("stored: channel=%q points=%d", stored.Name, stored.Count)
	}
	for _, sample := range summary.Samples {
		for _, point := range sample.Points {
			logger.Printf("sample: channel=%q height=%.2f value=%.4f", sample.ChannelName, point.Height, point.Value)
		}
	}
}
