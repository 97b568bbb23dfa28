package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	calibration "channel-calibration/internal/calibration/domain"
)

const defaultPointsTable = "channel_calibration_points"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PointRepository is a Postgres implementation for calibration points.
type PointRepository struct {
	db    DBTX
	table string
}

// NewPointRepository constructs a repository.
func NewPointRepository(db DBTX, opts ...PointOption) *PointRepository {
	repo := &PointRepository{db: db, table: defaultPointsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// PointOption configures the repository.
type PointOption func(*PointRepository)

// WithPointTable overrides the default table name.
func WithPointTable(table string) PointOption {
	return func(repo *PointRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// FindByChannelAndHeight loads a point by its natural key, or nil when absent.
func (r *PointRepository) FindByChannelAndHeight(ctx context.Context, channelID string, height float64) (*calibration.Point, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("point repo: nil db")
	}
	if channelID == "" {
		return nil, calibration.ErrEmptyChannelID
	}

	query := fmt.Sprintf(`
SELECT id, channel_id, height, value, created_at, updated_at
FROM %s
WHERE channel_id = $1 AND height = $2::numeric
LIMIT 1`, r.table)

	var point calibration.Point
	if err := r.db.QueryRowContext(ctx, query, channelID, formatHeight(height)).Scan(
		&point.ID,
		&point.ChannelID,
		&point.Height,
		&point.Value,
		&point.CreatedAt,
		&point.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	point.CreatedAt = point.CreatedAt.UTC()
	point.UpdatedAt = point.UpdatedAt.UTC()
	return &point, nil
}

// Create inserts a new point. The unique (channel_id, height) constraint rejects duplicates.
func (r *PointRepository) Create(ctx context.Context, point *calibration.Point) error {
	if r == nil || r.db == nil {
		return errors.New("point repo: nil db")
	}
	if point == nil {
		return errors.New("point repo: nil point")
	}
	if err := point.Validate(); err != nil {
		return err
	}
	if point.ID == "" {
		point.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, channel_id, height, value)
VALUES ($1, $2, $3::numeric, $4)`, r.table)

	if _, err := r.db.ExecContext(ctx, query, point.ID, point.ChannelID, formatHeight(point.Height), point.Value); err != nil {
		return err
	}
	now := time.Now().UTC()
	point.Height = calibration.RoundHeight(point.Height)
	point.CreatedAt = now
	point.UpdatedAt = now
	return nil
}

// UpdateValue overwrites the value of an existing point.
func (r *PointRepository) UpdateValue(ctx context.Context, id string, value float64) error {
	if r == nil || r.db == nil {
		return errors.New("point repo: nil db")
	}
	if id == "" {
		return errors.New("point repo: empty id")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET value = $2, updated_at = NOW()
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return calibration.ErrPointNotFound
	}
	return nil
}

// Upsert creates or updates a point in one statement and reports whether it was inserted.
func (r *PointRepository) Upsert(ctx context.Context, point *calibration.Point) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("point repo: nil db")
	}
	if point == nil {
		return false, errors.New("point repo: nil point")
	}
	if err := point.Validate(); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, channel_id, height, value)
VALUES ($1, $2, $3::numeric, $4)
ON CONFLICT (channel_id, height)
DO UPDATE SET
	value = EXCLUDED.value,
	updated_at = NOW()
RETURNING id, (xmax = 0) AS inserted`, r.table)

	var inserted bool
	if err := r.db.QueryRowContext(ctx, query, uuid.NewString(), point.ChannelID, formatHeight(point.Height), point.Value).Scan(&point.ID, &inserted); err != nil {
		return false, err
	}
	point.Height = calibration.RoundHeight(point.Height)
	return inserted, nil
}

// DeleteAll removes every calibration point.
func (r *PointRepository) DeleteAll(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("point repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", r.table))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByChannel removes the points of one channel.
func (r *PointRepository) DeleteByChannel(ctx context.Context, channelID string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("point repo: nil db")
	}
	if channelID == "" {
		return 0, calibration.ErrEmptyChannelID
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE channel_id = $1", r.table), channelID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByChannel returns point counts keyed by channel id.
func (r *PointRepository) CountByChannel(ctx context.Context) (map[string]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("point repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT channel_id, COUNT(*)
FROM %s
GROUP BY channel_id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var channelID string
		var count int
		if err := rows.Scan(&channelID, &count); err != nil {
			return nil, err
		}
		counts[channelID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ListByChannel loads points ordered by height; limit <= 0 means all.
func (r *PointRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]calibration.Point, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("point repo: nil db")
	}
	if channelID == "" {
		return nil, calibration.ErrEmptyChannelID
	}

	query := fmt.Sprintf(`
SELECT id, channel_id, height, value, created_at, updated_at
FROM %s
WHERE channel_id = $1
ORDER BY height ASC`, r.table)
	args := []any{channelID}
	if limit > 0 {
		query += "\nLIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []calibration.Point
	for rows.Next() {
		var point calibration.Point
		if err := rows.Scan(
			&point.ID,
			&point.ChannelID,
			&point.Height,
			&point.Value,
			&point.CreatedAt,
			&point.UpdatedAt,
		); err != nil {
			return nil, err
		}
		point.CreatedAt = point.CreatedAt.UTC()
		point.UpdatedAt = point.UpdatedAt.UTC()
		result = append(result, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func formatHeight(height float64) string {
	return strconv.FormatFloat(calibration.RoundHeight(height), 'f', 2, 64)
}
