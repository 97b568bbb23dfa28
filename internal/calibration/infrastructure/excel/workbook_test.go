package excel

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	calibration "channel-calibration/internal/calibration/domain"
)

func TestOpenWorkbook_Missing(t *testing.T) {
	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	if !errors.Is(err, calibration.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestWorkbook_ReadSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abak.xlsx")
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Çeltek Regülatörü")
	if _, err := f.NewSheet("Boş"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	sheet := "Çeltek Regülatörü"
	_ = f.SetCellValue(sheet, "A1", "Kot")
	_ = f.SetCellValue(sheet, "B1", 0)
	_ = f.SetCellValue(sheet, "C1", 0.01)
	_ = f.SetCellValue(sheet, "A2", 150)
	_ = f.SetCellValue(sheet, "B2", 5)
	_ = f.SetCellValue(sheet, "C2", 5.2)
	_ = f.SetCellValue(sheet, "A3", "150,1")
	_ = f.SetCellValue(sheet, "C3", 6)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	wb, err := OpenWorkbook(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer wb.Close()

	names := wb.SheetNames()
	if len(names) != 2 || names[0] != sheet || names[1] != "Boş" {
		t.Fatalf("unexpected sheets: %v", names)
	}

	got, err := wb.ReadSheet(sheet)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Headers) != 3 || got.Headers[2] != "0.01" {
		t.Fatalf("unexpected headers: %q", got.Headers)
	}
	if len(got.Rows) != 2 || got.Rows[0].Number != 2 || got.Rows[1].Number != 3 {
		t.Fatalf("unexpected rows: %+v", got.Rows)
	}
	if got.Rows[1].Cell(0) != "150,1" || got.Rows[1].Cell(1) != "" || got.Rows[1].Cell(2) != "6" {
		t.Fatalf("unexpected row cells: %q", got.Rows[1].Cells)
	}

	layout, err := calibration.ClassifyMatrix(got.Headers)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if n := calibration.FlattenMatrix(layout, got.Rows).Count(); n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}

	empty, err := wb.ReadSheet("Boş")
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if len(empty.Headers) != 0 || len(empty.Rows) != 0 {
		t.Fatalf("expected empty sheet, got %+v", empty)
	}
}
