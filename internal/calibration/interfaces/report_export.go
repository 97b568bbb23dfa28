package interfaces

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"channel-calibration/internal/calibration/application"
)

var errNilSummary = errors.New("report: nil summary")

// ReportOption configures report rendering.
type ReportOption func(*reportOptions)

type reportOptions struct {
	pdfFont string
}

// WithPDFFont embeds the TrueType font at path in PDF reports so every
// character of sheet and channel names is printed as is.
func WithPDFFont(path string) ReportOption {
	return func(o *reportOptions) {
		o.pdfFont = path
	}
}

// coreFontFolding maps the Turkish letters missing from cp1252 to their base letter.
var coreFontFolding = strings.NewReplacer(
	"ğ", "g", "Ğ", "G",
	"ş", "s", "Ş", "S",
	"ı", "i", "İ", "I",
)

// BuildRunReport renders the summary in the format implied by the file extension.
func BuildRunReport(path string, summary *application.RunSummary, opts ...ReportOption) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return BuildRunReportXLSX(summary)
	case ".pdf":
		return BuildRunReportPDF(summary, opts...)
	default:
		return nil, fmt.Errorf("report: unsupported format %q", filepath.Ext(path))
	}
}

// BuildRunReportPDF renders a minimal PDF for a run summary. Without WithPDFFont
// the cp1252 core font is used and Turkish letters outside it are folded.
func BuildRunReportPDF(summary *application.RunSummary, opts ...ReportOption) ([]byte, error) {
	if summary == nil {
		return nil, errNilSummary
	}
	var options reportOptions
	for _, opt := range opts {
		opt(&options)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	family, tr := pdfFont(pdf, options.pdfFont)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("report: load font %s: %w", options.pdfFont, err)
	}
	pdf.SetFont(family, "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Calibration Ingestion Report")
	pdf.Ln(10)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Source: %s", summary.Source)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Layout: %s", summary.Layout))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", summary.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Applied points: %d", summary.TotalApplied))
	pdf.Ln(5)
	if summary.Cleared {
		pdf.Cell(0, 6, fmt.Sprintf("Cleared points: %d", summary.ClearedPoints))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 10)
	pdf.CellFormat(70, 6, "Sheet", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Applied", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Blank", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Malformed", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont(family, "", 10)
	for _, sheet := range summary.Sheets {
		pdf.CellFormat(70, 6, tr(sheet.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(sheet.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", sheet.Applied), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", sheet.BlankCells), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", sheet.MalformedCells), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(summary.Stored) > 0 {
		pdf.Ln(6)
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(110, 6, "Channel", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Stored points", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont(family, "", 10)
		for _, stored := range summary.Stored {
			pdf.CellFormat(110, 6, tr(stored.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", stored.Count), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfFont selects the font family and the text translator for names.
func pdfFont(pdf *gofpdf.Fpdf, fontPath string) (string, func(string) string) {
	if fontPath != "" {
		pdf.AddUTF8Font("report", "", fontPath)
		pdf.AddUTF8Font("report", "B", fontPath)
		return "report", func(s string) string { return s }
	}
	cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
	return "Arial", func(s string) string { return cp1252(coreFontFolding.Replace(s)) }
}

// BuildRunReportXLSX renders a run summary as a workbook with summary, sheets
// and stored channel tabs.
func BuildRunReportXLSX(summary *application.RunSummary) ([]byte, error) {
	if summary == nil {
		return nil, errNilSummary
	}
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	sheetsSheet := "sheets"
	storedSheet := "stored"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(storedSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Calibration Ingestion Report")
	_ = f.SetCellValue(summarySheet, "A3", "Source")
	_ = f.SetCellValue(summarySheet, "B3", summary.Source)
	_ = f.SetCellValue(summarySheet, "A4", "Layout")
	_ = f.SetCellValue(summarySheet, "B4", string(summary.Layout))
	_ = f.SetCellValue(summarySheet, "A5", "Started")
	_ = f.SetCellValue(summarySheet, "B5", summary.StartedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Applied points")
	_ = f.SetCellValue(summarySheet, "B6", summary.TotalApplied)
	_ = f.SetCellValue(summarySheet, "A7", "Cleared points")
	_ = f.SetCellValue(summarySheet, "B7", summary.ClearedPoints)
	_ = f.SetCellValue(summarySheet, "A8", "Skipped sheets")
	_ = f.SetCellValue(summarySheet, "B8", strings.Join(summary.SkippedLabels(), ", "))

	headers := []string{"Sheet", "Status", "Channel", "Offsets", "Applied", "Created", "Updated", "Blank", "Malformed", "Store errors", "Reason"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetsSheet, cell, header)
	}
	for i, sheet := range summary.Sheets {
		row := i + 2
		reason := ""
		if sheet.Reason != nil {
			reason = sheet.Reason.Error()
		}
		values := []interface{}{
			sheet.Label, string(sheet.Status), sheet.ChannelName, sheet.Offsets,
			sheet.Applied, sheet.Created, sheet.Updated, sheet.BlankCells, sheet.MalformedCells, sheet.StoreErrors, reason,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetsSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	_ = f.SetCellValue(storedSheet, "A1", "Channel")
	_ = f.SetCellValue(storedSheet, "B1", "Stored points")
	for i, stored := range summary.Stored {
		row := i + 2
		_ = f.SetCellValue(storedSheet, fmt.Sprintf("A%d", row), stored.Name)
		_ = f.SetCellValue(storedSheet, fmt.Sprintf("B%d", row), stored.Count)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
