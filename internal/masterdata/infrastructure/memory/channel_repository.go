package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	masterdata "channel-calibration/internal/masterdata/domain"
)

// ChannelRepository is an in-memory channel store for demo/testing.
// ListAll preserves insertion order.
type ChannelRepository struct {
	mu       sync.RWMutex
	channels []masterdata.Channel
}

// NewChannelRepository constructs a repository seeded with channels.
func NewChannelRepository(channels ...masterdata.Channel) *ChannelRepository {
	return &ChannelRepository{channels: append([]masterdata.Channel(nil), channels...)}
}

// ListAll returns a copy of every channel.
func (r *ChannelRepository) ListAll(ctx context.Context) ([]masterdata.Channel, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]masterdata.Channel, len(r.channels))
	copy(result, r.channels)
	return result, nil
}

// FindByNameFragment returns channels whose name contains fragment, ignoring case.
func (r *ChannelRepository) FindByNameFragment(ctx context.Context, fragment string) ([]masterdata.Channel, error) {
	_ = ctx
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, errors.New("memory channel repo: empty fragment")
	}
	needle := strings.ToLower(fragment)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []masterdata.Channel
	for _, channel := range r.channels {
		if strings.Contains(strings.ToLower(channel.Name), needle) {
			result = append(result, channel)
		}
	}
	return result, nil
}

// Save inserts or replaces a channel by id.
func (r *ChannelRepository) Save(ctx context.Context, channel *masterdata.Channel) error {
	_ = ctx
	if channel == nil {
		return errors.New("memory channel repo: nil channel")
	}
	if err := channel.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.channels {
		if r.channels[i].ID == channel.ID {
			r.channels[i] = *channel
			return nil
		}
	}
	r.channels = append(r.channels, *channel)
	return nil
}
