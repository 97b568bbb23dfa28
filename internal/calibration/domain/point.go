package calibration

import (
	"context"
	"math"
	"time"
)

// Sample is one (height, value) pair produced by flattening a sheet.
type Sample struct {
	Height float64
	Value  float64
}

// Point is a persisted calibration sample owned by a channel.
// (ChannelID, Height) is unique.
type Point struct {
	ID        string
	ChannelID string
	Height    float64
	Value     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks point invariants.
func (p Point) Validate() error {
	if p.ChannelID == "" {
		return ErrEmptyChannelID
	}
	if math.IsNaN(p.Height) || math.IsInf(p.Height, 0) || math.Abs(p.Height) > MaxHeight {
		return ErrInvalidHeight
	}
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return ErrInvalidValue
	}
	return nil
}

// RoundHeight rounds a height to the canonical two decimals.
func RoundHeight(height float64) float64 {
	return math.Round(height*100) / 100
}

// MaxHeight bounds |height| so that HeightKey stays within int64.
const MaxHeight = 1e15

// HeightKey returns the height in hundredths, used as an exact lookup key.
func HeightKey(height float64) int64 {
	return int64(math.Round(height * 100))
}

// PointRepository persists calibration points.
type PointRepository interface {
	FindByChannelAndHeight(ctx context.Context, channelID string, height float64) (*Point, error)
	Create(ctx context.Context, point *Point) error
	UpdateValue(ctx context.Context, id string, value float64) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByChannel(ctx context.Context, channelID string) (int64, error)
	CountByChannel(ctx context.Context) (map[string]int, error)
	ListByChannel(ctx context.Context, channelID string, limit int) ([]Point, error)
}
