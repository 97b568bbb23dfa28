package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	calibration "channel-calibration/internal/calibration/domain"
)

type pointKey struct {
	channelID string
	height    int64
}

// PointRepository is an in-memory calibration point store for demo/testing.
type PointRepository struct {
	mu      sync.RWMutex
	seq     int
	byKey   map[pointKey]*calibration.Point
	byID    map[string]pointKey
	now     func() time.Time
	creates int
	updates int
}

// NewPointRepository constructs a repository.
func NewPointRepository() *PointRepository {
	return &PointRepository{
		byKey: make(map[pointKey]*calibration.Point),
		byID:  make(map[string]pointKey),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// FindByChannelAndHeight returns a copy of the point, or nil when absent.
func (r *PointRepository) FindByChannelAndHeight(ctx context.Context, channelID string, height float64) (*calibration.Point, error) {
	_ = ctx
	if channelID == "" {
		return nil, calibration.ErrEmptyChannelID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	point := r.byKey[pointKey{channelID: channelID, height: calibration.HeightKey(height)}]
	if point == nil {
		return nil, nil
	}
	clone := *point
	return &clone, nil
}

// Create inserts a point and assigns its id. A duplicate key is an error.
func (r *PointRepository) Create(ctx context.Context, point *calibration.Point) error {
	_ = ctx
	if point == nil {
		return errors.New("memory point repo: nil point")
	}
	if err := point.Validate(); err != nil {
		return err
	}
	key := pointKey{channelID: point.ChannelID, height: calibration.HeightKey(point.Height)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("memory point repo: duplicate point channel=%s height=%.2f", point.ChannelID, point.Height)
	}
	r.seq++
	now := r.now()
	point.ID = fmt.Sprintf("point-%d", r.seq)
	point.Height = calibration.RoundHeight(point.Height)
	point.CreatedAt = now
	point.UpdatedAt = now
	clone := *point
	r.byKey[key] = &clone
	r.byID[point.ID] = key
	r.creates++
	return nil
}

// UpdateValue overwrites the value of an existing point.
func (r *PointRepository) UpdateValue(ctx context.Context, id string, value float64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byID[id]
	if !ok {
		return calibration.ErrPointNotFound
	}
	point := r.byKey[key]
	point.Value = value
	point.UpdatedAt = r.now()
	r.updates++
	return nil
}

// DeleteAll removes every point.
func (r *PointRepository) DeleteAll(ctx context.Context) (int64, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := int64(len(r.byKey))
	r.byKey = make(map[pointKey]*calibration.Point)
	r.byID = make(map[string]pointKey)
	return deleted, nil
}

// DeleteByChannel removes every point of a channel.
func (r *PointRepository) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	_ = ctx
	if channelID == "" {
		return 0, calibration.ErrEmptyChannelID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, point := range r.byKey {
		if key.channelID != channelID {
			continue
		}
		delete(r.byID, point.ID)
		delete(r.byKey, key)
		deleted++
	}
	return deleted, nil
}

// CountByChannel returns point counts keyed by channel id.
func (r *PointRepository) CountByChannel(ctx context.Context) (map[string]int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for key := range r.byKey {
		counts[key.channelID]++
	}
	return counts, nil
}

// ListByChannel returns points ordered by height; limit <= 0 means all.
func (r *PointRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]calibration.Point, error) {
	_ = ctx
	if channelID == "" {
		return nil, calibration.ErrEmptyChannelID
	}
	r.mu.RLock()
	result := make([]calibration.Point, 0)
	for key, point := range r.byKey {
		if key.channelID == channelID {
			result = append(result, *point)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Height < result[j].Height })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Stats reports how many creates and updates were applied, for assertions.
func (r *PointRepository) Stats() (creates, updates int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.creates, r.updates
}
