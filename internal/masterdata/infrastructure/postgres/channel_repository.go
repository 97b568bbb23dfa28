package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	masterdata "channel-calibration/internal/masterdata/domain"
)

const defaultChannelsTable = "channels"

// ChannelRepository is a Postgres implementation for channels.
type ChannelRepository struct {
	db    DBTX
	table string
}

// NewChannelRepository constructs a repository.
func NewChannelRepository(db DBTX, opts ...ChannelOption) *ChannelRepository {
	repo := &ChannelRepository{db: db, table: defaultChannelsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ChannelOption configures the repository.
type ChannelOption func(*ChannelRepository)

// WithChannelTable overrides the default table name.
func WithChannelTable(table string) ChannelOption {
	return func(repo *ChannelRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// ListAll loads every channel ordered by name.
func (r *ChannelRepository) ListAll(ctx context.Context) ([]masterdata.Channel, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("channel repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, created_at, updated_at
FROM %s
ORDER BY name ASC, id ASC`, r.table)

	return r.query(ctx, query)
}

// FindByNameFragment loads channels whose name contains fragment (ILIKE).
func (r *ChannelRepository) FindByNameFragment(ctx context.Context, fragment string) ([]masterdata.Channel, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("channel repo: nil db")
	}
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, errors.New("channel repo: empty fragment")
	}

	query := fmt.Sprintf(`
SELECT id, name, created_at, updated_at
FROM %s
WHERE name ILIKE $1 ESCAPE '\'
ORDER BY name ASC, id ASC`, r.table)

	return r.query(ctx, query, "%"+escapeLike(fragment)+"%")
}

// Save upserts a channel.
func (r *ChannelRepository) Save(ctx context.Context, channel *masterdata.Channel) error {
	if r == nil || r.db == nil {
		return errors.New("channel repo: nil db")
	}
	if channel == nil {
		return errors.New("channel repo: nil channel")
	}
	if err := channel.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, name)
VALUES ($1, $2)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	updated_at = NOW()`, r.table)

	if _, err := r.db.ExecContext(ctx, query, channel.ID, channel.Name); err != nil {
		return err
	}
	now := time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now
	return nil
}

func (r *ChannelRepository) query(ctx context.Context, query string, args ...any) ([]masterdata.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Channel
	for rows.Next() {
		var channel masterdata.Channel
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.CreatedAt, &channel.UpdatedAt); err != nil {
			return nil, err
		}
		channel.CreatedAt = channel.CreatedAt.UTC()
		channel.UpdatedAt = channel.UpdatedAt.UTC()
		result = append(result, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
