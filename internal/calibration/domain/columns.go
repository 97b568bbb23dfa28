package calibration

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// RoleKind tags a sheet column.
type RoleKind int

const (
	RoleIgnored RoleKind = iota
	RoleBaseHeight
	RoleOffset
)

// String implements fmt.Stringer.
func (k RoleKind) String() string {
	switch k {
	case RoleBaseHeight:
		return "base_height"
	case RoleOffset:
		return "offset"
	default:
		return "ignored"
	}
}

// ColumnRole is the role of one column; Offset is set only for RoleOffset.
type ColumnRole struct {
	Kind   RoleKind
	Offset float64
}

// OffsetColumn is a matrix column whose header decodes to a height increment.
type OffsetColumn struct {
	Index  int
	Header string
	Offset float64
}

// MatrixLayout is the classification of a matrix-shaped sheet.
type MatrixLayout struct {
	Roles      []ColumnRole
	BaseColumn int
	Offsets    []OffsetColumn
}

// FlatLayout is the classification of a two-column height/value sheet.
type FlatLayout struct {
	HeightColumn int
	ValueColumn  int
	// ByName is false when the first two columns were used as a fallback.
	ByName bool
}

var (
	heightSynonyms = []string{"yukseklik", "yükseklik", "h", "height"}
	valueSynonyms  = []string{"hacim", "debi", "flow", "volume"}
)

// ClassifyMatrix assigns a role to every header. The first column is always the
// base height; numeric headers are offsets and anything else is ignored.
func ClassifyMatrix(headers []string) (MatrixLayout, error) {
	layout := MatrixLayout{Roles: make([]ColumnRole, len(headers))}
	if len(headers) == 0 {
		return layout, fmt.Errorf("%w: no header row", ErrInsufficientColumns)
	}
	layout.Roles[0] = ColumnRole{Kind: RoleBaseHeight}
	for i := 1; i < len(headers); i++ {
		offset, ok := parseOffsetHeader(headers[i])
		if !ok {
			continue
		}
		layout.Roles[i] = ColumnRole{Kind: RoleOffset, Offset: offset}
		layout.Offsets = append(layout.Offsets, OffsetColumn{Index: i, Header: strings.TrimSpace(headers[i]), Offset: offset})
	}
	if len(layout.Offsets) == 0 {
		return layout, fmt.Errorf("%w: no numeric offset column among %d columns", ErrInsufficientColumns, len(headers))
	}
	return layout, nil
}

// ClassifyFlat finds the height and value columns by synonym, falling back to the
// first two columns when either cannot be named.
func ClassifyFlat(headers []string) (FlatLayout, error) {
	height, value := -1, -1
	for i, header := range headers {
		name := normalizeHeader(header)
		if name == "" {
			continue
		}
		// Value synonyms first: "hacim" contains the height synonym "h".
		if value < 0 && containsAny(name, valueSynonyms) {
			value = i
			continue
		}
		if height < 0 && containsAny(name, heightSynonyms) {
			height = i
		}
	}
	if height >= 0 && value >= 0 {
		return FlatLayout{HeightColumn: height, ValueColumn: value, ByName: true}, nil
	}
	if len(headers) < 2 {
		return FlatLayout{}, fmt.Errorf("%w: need 2 columns, got %d", ErrInsufficientColumns, len(headers))
	}
	return FlatLayout{HeightColumn: 0, ValueColumn: 1}, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(header)))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
