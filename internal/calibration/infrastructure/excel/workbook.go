package excel

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	calibration "channel-calibration/internal/calibration/domain"
)

// Workbook reads calibration sheets from an .xlsx file.
type Workbook struct {
	path string
	file *excelize.File
}

// OpenWorkbook opens path. Any failure is wrapped in calibration.ErrSourceUnavailable.
func OpenWorkbook(path string) (*Workbook, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", calibration.ErrSourceUnavailable)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", calibration.ErrSourceUnavailable, path, err)
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", calibration.ErrSourceUnavailable, path, err)
	}
	return &Workbook{path: path, file: file}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// SheetNames lists worksheets in workbook order.
func (w *Workbook) SheetNames() []string {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.GetSheetList()
}

// ReadSheet loads a worksheet. The first row is the header; raw cell values are
// returned so number formats do not leak into parsing.
func (w *Workbook) ReadSheet(name string) (calibration.Sheet, error) {
	sheet := calibration.Sheet{Name: name}
	if w == nil || w.file == nil {
		return sheet, errors.New("excel workbook: not open")
	}
	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet, fmt.Errorf("excel workbook: read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return sheet, nil
	}
	sheet.Headers = rows[0]
	sheet.Rows = make([]calibration.Row, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		sheet.Rows = append(sheet.Rows, calibration.Row{Number: i + 2, Cells: cells})
	}
	return sheet, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.Close()
}
