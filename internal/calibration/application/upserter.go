package application

import (
	"context"
	"errors"
	"fmt"

	calibration "channel-calibration/internal/calibration/domain"
)

// AtomicUpserter is implemented by stores that can create-or-update in one step.
type AtomicUpserter interface {
	Upsert(ctx context.Context, point *calibration.Point) (created bool, err error)
}

// UpsertResult counts applied points.
type UpsertResult struct {
	Applied int
	Created int
	Updated int
	// Failed counts samples the store rejected.
	Failed int
}

// Upserter applies samples to the point store keyed by (channel, height).
type Upserter struct {
	points calibration.PointRepository
	atomic AtomicUpserter
}

// NewUpserter constructs an upserter. Stores implementing AtomicUpserter are
// used through their single-statement path.
func NewUpserter(points calibration.PointRepository) (*Upserter, error) {
	if points == nil {
		return nil, errors.New("upserter: nil point repository")
	}
	u := &Upserter{points: points}
	if atomic, ok := points.(AtomicUpserter); ok {
		u.atomic = atomic
	}
	return u, nil
}

// ApplyOne creates the point if absent, otherwise overwrites its value.
func (u *Upserter) ApplyOne(ctx context.Context, channelID string, sample calibration.Sample) (bool, error) {
	point := &calibration.Point{
		ChannelID: channelID,
		Height:    calibration.RoundHeight(sample.Height),
		Value:     sample.Value,
	}
	if err := point.Validate(); err != nil {
		return false, err
	}
	if u.atomic != nil {
		return u.atomic.Upsert(ctx, point)
	}

	existing, err := u.points.FindByChannelAndHeight(ctx, channelID, point.Height)
	if err != nil {
		return false, err
	}
	if existing == nil {
		if err := u.points.Create(ctx, point); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := u.points.UpdateValue(ctx, existing.ID, point.Value); err != nil {
		return false, err
	}
	return false, nil
}

// Apply applies samples in order. A sample the store rejects is counted in
// Failed and the rest are still applied; the returned error carries the first
// failure. Application stops early only when ctx is done.
func (u *Upserter) Apply(ctx context.Context, channelID string, samples []calibration.Sample) (UpsertResult, error) {
	var result UpsertResult
	if channelID == "" {
		return result, calibration.ErrEmptyChannelID
	}
	var first error
	for _, sample := range samples {
		created, err := u.ApplyOne(ctx, channelID, sample)
		if err != nil {
			result.Failed++
			if first == nil {
				first = fmt.Errorf("upsert height=%.2f: %w", sample.Height, err)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		result.Applied++
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	if first != nil {
		return result, fmt.Errorf("%d of %d samples failed: %w", result.Failed, len(samples), first)
	}
	return result, nil
}
