// Package star manages stars, the named entities images are grouped under.
package star

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Star is a named entity that owns a gallery of images.
type Star struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotFound is returned when a star does not exist.
var ErrNotFound = errors.New("star not found")

// ErrConflict is returned when another star already uses the requested name.
var ErrConflict = errors.New("star name already exists")

// ErrInvalidName is returned for empty or whitespace-only names.
var ErrInvalidName = errors.New("star name must not be blank")

// listCap bounds the unpaginated star listing.
const listCap = 1000

// Repository handles all star database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new star and returns the created record.
func (r *Repository) Create(ctx context.Context, name string) (*Star, error) {
	s := &Star{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO stars (name) VALUES ($1)
		 RETURNING id::text, name, created_at`,
		name,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create star: %w", err)
	}
	return s, nil
}

// GetByID fetches a star by its id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Star, error) {
	s := &Star{}
	err := r.db.QueryRow(ctx,
		`SELECT id::text, name, created_at FROM stars WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get star by id: %w", err)
	}
	return s, nil
}

// NameTaken reports whether a star other than excludeID uses name.
// Pass an empty excludeID to check against every star.
func (r *Repository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var taken bool
	var err error
	if excludeID == "" {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM stars WHERE name = $1)`,
			name,
		).Scan(&taken)
	} else {
		err = r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM stars WHERE name = $1 AND id <> $2)`,
			name, excludeID,
		).Scan(&taken)
	}
	if err != nil {
		return false, fmt.Errorf("check star name: %w", err)
	}
	return taken, nil
}

// List returns stars newest first. A non-empty search filters by a
// case-insensitive substring match on the name.
func (r *Repository) List(ctx context.Context, search string) ([]Star, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, name, created_at FROM stars
		 WHERE $1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\'
		 ORDER BY created_at DESC
		 LIMIT $2`,
		escapeLike(search), listCap,
	)
	if err != nil {
		return nil, fmt.Errorf("list stars: %w", err)
	}

	stars, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Star, error) {
		var s Star
		err := row.Scan(&s.ID, &s.Name, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan stars: %w", err)
	}
	return stars, nil
}

// Rename sets a star's name and returns the updated record.
func (r *Repository) Rename(ctx context.Context, id, name string) (*Star, error) {
	s := &Star{}
	err := r.db.QueryRow(ctx,
		`UPDATE stars SET name = $2 WHERE id = $1
		 RETURNING id::text, name, created_at`,
		id, name,
	).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rename star: %w", err)
	}
	return s, nil
}

// Delete removes a star record. Its images must already be gone.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete star: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
