package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sharebox/internal/models"
)

// shareColumns is the standard column list for share queries.
const shareColumns = `id, link, password_hash, expires_at, file_count, owner_id, title, created_at`

// scanShare scans a row into a Share struct.
func scanShare(row pgx.Row) (*models.Share, error) {
	var s models.Share
	err := row.Scan(
		&s.ID,
		&s.Link,
		&s.PasswordHash,
		&s.ExpiresAt,
		&s.FileCount,
		&s.OwnerID,
		&s.Title,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// scanShares scans multiple rows into a slice of Shares.
func scanShares(rows pgx.Rows) ([]models.Share, error) {
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var s models.Share
		if err := rows.Scan(
			&s.ID,
			&s.Link,
			&s.PasswordHash,
			&s.ExpiresAt,
			&s.FileCount,
			&s.OwnerID,
			&s.Title,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}

	return shares, rows.Err()
}

// LinkExists reports whether the link is used by a live share or was used by
// a deleted one.
func (d *DB) LinkExists(ctx context.Context, link string) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM shares WHERE link = $1)
		    OR EXISTS(SELECT 1 FROM retired_links WHERE link = $1)
	`
	var exists bool
	err := d.Pool.QueryRow(ctx, query, link).Scan(&exists)
	return exists, err
}

// CreateShare inserts a share. Returns ErrDuplicateLink if the link is taken
// or retired.
func (d *DB) CreateShare(ctx context.Context, share *models.Share) error {
	query := `
		INSERT INTO shares (link, password_hash, expires_at, file_count, owner_id, title)
		SELECT $1::varchar, $2::text, $3::timestamptz, 0, $4::uuid, $5::text
		WHERE NOT EXISTS (SELECT 1 FROM retired_links WHERE link = $1::varchar)
		RETURNING id, file_count, created_at
	`

	err := d.Pool.QueryRow(ctx, query,
		share.Link,
		share.PasswordHash,
		share.ExpiresAt,
		share.OwnerID,
		share.Title,
	).Scan(&share.ID, &share.FileCount, &share.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err, "shares_link_key") {
			return ErrDuplicateLink
		}
		return err
	}
	return nil
}

// GetShareByLink retrieves a share by its public link.
func (d *DB) GetShareByLink(ctx context.Context, link string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE link = $1`
	return scanShare(d.Pool.QueryRow(ctx, query, link))
}

// GetShareByID retrieves a share by its UUID.
func (d *DB) GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE id = $1`
	return scanShare(d.Pool.QueryRow(ctx, query, id))
}

// ListSharesByOwner returns all shares owned by a user, newest first.
func (d *DB) ListSharesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := d.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return scanShares(rows)
}

// ListExpiredShares returns up to limit shares whose expiry is before now,
// oldest first.
func (d *DB) ListExpiredShares(ctx context.Context, now time.Time, limit int) ([]models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE expires_at < $1 ORDER BY expires_at ASC LIMIT $2`
	rows, err := d.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	return scanShares(rows)
}

// UpdateShareExpiry sets a new expiry. The WHERE clause only lets it move
// forward.
func (d *DB) UpdateShareExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE shares SET expires_at = $1 WHERE id = $2 AND expires_at <= $1`,
		expiresAt, id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}

// IncrementFileCount bumps the denormalized file count by one.
func (d *DB) IncrementFileCount(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `UPDATE shares SET file_count = file_count + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrShareNotFound
	}
	return nil
}

// DeleteShare removes a share and retires its link; its files are removed by
// cascade.
func (d *DB) DeleteShare(ctx context.Context, id uuid.UUID) error {
	return d.deleteShare(ctx, `DELETE FROM shares WHERE id = $1 RETURNING link`, id)
}

// DeleteExpiredShare is DeleteShare for a share that must still have expired
// before cutoff. Returns ErrShareNotFound if it is gone or was extended.
func (d *DB) DeleteExpiredShare(ctx context.Context, id uuid.UUID, cutoff time.Time) error {
	return d.deleteShare(ctx, `DELETE FROM shares WHERE id = $1 AND expires_at < $2 RETURNING link`, id, cutoff)
}

func (d *DB) deleteShare(ctx context.Context, query string, args ...any) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var link string
	if err := tx.QueryRow(ctx, query, args...).Scan(&link); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrShareNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO retired_links (link) VALUES ($1) ON CONFLICT (link) DO NOTHING`, link); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetShareStats counts shares and files for metrics.
func (d *DB) GetShareStats(ctx context.Context, now time.Time) (*models.ShareStats, error) {
	var stats models.ShareStats
	err := d.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE expires_at >= $1),
			COUNT(*) FILTER (WHERE expires_at < $1)
		FROM shares
	`, now).Scan(&stats.Active, &stats.Expired)
	if err != nil {
		return nil, err
	}

	err = d.Pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&stats.Files, &stats.Bytes)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
