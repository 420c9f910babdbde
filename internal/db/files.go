package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sharebox/internal/models"
)

const fileColumns = `id, share_id, filename, size, mime_type, blob_key, uploaded_at`

// CreateFile registers a file against a share.
func (d *DB) CreateFile(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (share_id, filename, size, mime_type, blob_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`
	return d.Pool.QueryRow(ctx, query,
		file.ShareID,
		file.Filename,
		file.Size,
		file.MimeType,
		file.BlobKey,
	).Scan(&file.ID, &file.UploadedAt)
}

// GetFile retrieves a single file, scoped to its share.
func (d *DB) GetFile(ctx context.Context, shareID, fileID uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND share_id = $2`

	var f models.File
	err := d.Pool.QueryRow(ctx, query, fileID, shareID).Scan(
		&f.ID, &f.ShareID, &f.Filename, &f.Size, &f.MimeType, &f.BlobKey, &f.UploadedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles returns a share's files ordered by upload time, oldest first.
func (d *DB) ListFiles(ctx context.Context, shareID uuid.UUID) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE share_id = $1 ORDER BY uploaded_at ASC, id ASC`

	rows, err := d.Pool.Query(ctx, query, shareID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.ShareID, &f.Filename, &f.Size, &f.MimeType, &f.BlobKey, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, rows.Err()
}
