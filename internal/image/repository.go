// Package image persists metadata for images whose payloads live in object storage.
package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stargallery/service/internal/star"
)

// Image is the metadata record of one stored image.
type Image struct {
	ID         string    `json:"id"`
	StarID     string    `json:"star_id"`
	StorageKey string    `json:"-"`
	URL        string    `json:"s3_url"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ErrNotFound is returned when an image does not exist.
var ErrNotFound = errors.New("image not found")

// foreignKeyViolation is the SQLSTATE raised when star_id names no star.
const foreignKeyViolation = "23503"

const selectColumns = `id::text, star_id::text, storage_key, url, filename, file_size, mime_type, uploaded_at`

// Repository handles all image database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts img and fills in its store-assigned ID and UploadedAt.
// It returns star.ErrNotFound when the owning star no longer exists.
func (r *Repository) Create(ctx context.Context, img *Image) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO images (star_id, storage_key, url, filename, file_size, mime_type, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id::text, uploaded_at`,
		img.StarID, img.StorageKey, img.URL, img.Filename, img.FileSize, img.MimeType, img.UploadedAt,
	).Scan(&img.ID, &img.UploadedAt)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("create image: %w", star.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

// GetByID fetches an image by its id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Image, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM images WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get image by id: %w", err)
	}
	img, err := pgx.CollectExactlyOneRow(rows, scanImage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image by id: %w", err)
	}
	return &img, nil
}

// ListByStar returns one page of a star's images, newest first.
func (r *Repository) ListByStar(ctx context.Context, starID string, offset, limit int) ([]Image, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM images
		 WHERE star_id = $1
		 ORDER BY uploaded_at DESC
		 OFFSET $2 LIMIT $3`,
		starID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	images, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	return images, nil
}

// ListAllByStar returns every image of a star.
func (r *Repository) ListAllByStar(ctx context.Context, starID string) ([]Image, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM images WHERE star_id = $1`, starID)
	if err != nil {
		return nil, fmt.Errorf("list all images: %w", err)
	}
	images, err := pgx.CollectRows(rows, scanImage)
	if err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	return images, nil
}

// Delete removes one image record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByStar removes every image record of a star in one statement.
func (r *Repository) DeleteByStar(ctx context.Context, starID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE star_id = $1`, starID)
	if err != nil {
		return 0, fmt.Errorf("delete images of star: %w", err)
	}
	return tag.RowsAffected(), nil
}

// isForeignKeyViolation reports whether err is a Postgres foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func scanImage(row pgx.CollectableRow) (Image, error) {
	var img Image
	err := row.Scan(&img.ID, &img.StarID, &img.StorageKey, &img.URL,
		&img.Filename, &img.FileSize, &img.MimeType, &img.UploadedAt)
	return img, err
}
