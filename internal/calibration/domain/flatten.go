package calibration

import "errors"

// Row is one data row of a sheet. Number is the 1-based spreadsheet row.
type Row struct {
	Number int
	Cells  []string
}

// Cell returns the raw cell at index, or "" when the row is shorter.
func (r Row) Cell(index int) string {
	if index < 0 || index >= len(r.Cells) {
		return ""
	}
	return r.Cells[index]
}

// CellSkip records a cell that did not contribute a sample.
type CellSkip struct {
	Row    int
	Column int
	Raw    string
	Reason error
}

// Flattened is the outcome of flattening one sheet.
type Flattened struct {
	Samples []Sample
	Skipped []CellSkip
}

// Count returns the number of emitted samples.
func (f Flattened) Count() int {
	return len(f.Samples)
}

// SkipCounts groups skipped cells by reason.
func (f Flattened) SkipCounts() (blank, malformed int) {
	for _, skip := range f.Skipped {
		switch {
		case errors.Is(skip.Reason, ErrBlankCell):
			blank++
		case errors.Is(skip.Reason, ErrMalformedCell):
			malformed++
		}
	}
	return blank, malformed
}

func (f *Flattened) skip(row Row, column int, err error) {
	f.Skipped = append(f.Skipped, CellSkip{Row: row.Number, Column: column, Raw: row.Cell(column), Reason: err})
}

// FlattenMatrix emits one sample per (row, offset column) whose value parses,
// at height round(base + offset, 2). A row whose base height does not parse
// emits nothing.
func FlattenMatrix(layout MatrixLayout, rows []Row) Flattened {
	var out Flattened
	for _, row := range rows {
		base, err := ParseNumber(row.Cell(layout.BaseColumn))
		if err != nil {
			out.skip(row, layout.BaseColumn, err)
			continue
		}
		for _, column := range layout.Offsets {
			value, err := ParseNumber(row.Cell(column.Index))
			if err != nil {
				out.skip(row, column.Index, err)
				continue
			}
			out.Samples = append(out.Samples, Sample{Height: RoundHeight(base + column.Offset), Value: value})
		}
	}
	return out
}

// FlattenFlat emits one sample per row whose height and value both parse.
func FlattenFlat(layout FlatLayout, rows []Row) Flattened {
	var out Flattened
	for _, row := range rows {
		height, err := ParseNumber(row.Cell(layout.HeightColumn))
		if err != nil {
			out.skip(row, layout.HeightColumn, err)
			continue
		}
		value, err := ParseNumber(row.Cell(layout.ValueColumn))
		if err != nil {
			out.skip(row, layout.ValueColumn, err)
			continue
		}
		out.Samples = append(out.Samples, Sample{Height: RoundHeight(height), Value: value})
	}
	return out
}

// Sheet is one worksheet: the header row and the data rows below it.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}
