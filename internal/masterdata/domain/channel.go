package masterdata

import (
	"context"
	"errors"
	"time"
)

// Channel represents an irrigation channel in masterdata.
type Channel struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks channel invariants.
func (c Channel) Validate() error {
	if c.ID == "" {
		return errors.New("channel: empty id")
	}
	if c.Name == "" {
		return errors.New("channel: empty name")
	}
	return nil
}

// ChannelRepository is the read side of channel masterdata.
// Channels are administered elsewhere; ingestion never creates one.
type ChannelRepository interface {
	ListAll(ctx context.Context) ([]Channel, error)
	// FindByNameFragment returns channels whose name contains fragment, case-insensitively.
	FindByNameFragment(ctx context.Context, fragment string) ([]Channel, error)
}
