package calibration

import "errors"

var (
	// ErrBlankCell is recorded when a cell is empty after trimming.
	ErrBlankCell = errors.New("calibration: blank cell")
	// ErrMalformedCell is recorded when a cell is not a finite number.
	ErrMalformedCell = errors.New("calibration: malformed cell")
	// ErrInsufficientColumns is returned when a sheet has no usable value or offset column.
	ErrInsufficientColumns = errors.New("calibration: insufficient columns")
	// ErrEmptySheet is returned when a sheet has no data rows.
	ErrEmptySheet = errors.New("calibration: empty sheet")
	// ErrNoPoints is returned when a sheet produced no calibration points.
	ErrNoPoints = errors.New("calibration: no points applied")
	// ErrChannelNotFound is returned when a sheet label resolves to no channel.
	ErrChannelNotFound = errors.New("calibration: channel not found")
	// ErrSourceUnavailable is returned when the workbook cannot be opened.
	ErrSourceUnavailable = errors.New("calibration: source unavailable")
	// ErrEmptyChannelID is returned when a point has no owning channel.
	ErrEmptyChannelID = errors.New("calibration: empty channel id")
	// ErrInvalidHeight is returned for NaN or infinite heights.
	ErrInvalidHeight = errors.New("calibration: invalid height")
	// ErrInvalidValue is returned for NaN or infinite values.
	ErrInvalidValue = errors.New("calibration: invalid value")
	// ErrPointNotFound is returned when updating a point that does not exist.
	ErrPointNotFound = errors.New("calibration: point not found")
)
