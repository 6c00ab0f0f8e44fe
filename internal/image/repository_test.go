package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stargallery/service/internal/db"
	"github.com/stargallery/service/internal/star"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := db.Migrate(url, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.Connect(context.Background(), url, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	stars := star.NewRepository(pool)
	repo := NewRepository(pool)

	owner, err := stars.Create(ctx, "image-repo-test-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create star: %v", err)
	}
	t.Cleanup(func() {
		repo.DeleteByStar(context.Background(), owner.ID) //nolint:errcheck
		stars.Delete(context.Background(), owner.ID)      //nolint:errcheck
	})

	base := time.Now().UTC().Truncate(time.Millisecond)
	var created []Image
	for i := 0; i < 3; i++ {
		img := &Image{
			StarID:     owner.ID,
			StorageKey: fmt.Sprintf("star_gallery/stars/%s/%s_pic%d", owner.ID, uuid.NewString(), i),
			URL:        fmt.Sprintf("https://cdn.test/pic%d", i),
			Filename:   fmt.Sprintf("pic%d.jpg", i),
			FileSize:   int64(100 + i),
			MimeType:   "image/jpeg",
			UploadedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Create(ctx, img); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if img.ID == "" {
			t.Fatal("Create() did not assign an id")
		}
		created = append(created, *img)
	}

	got, err := repo.GetByID(ctx, created[1].ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.StorageKey != created[1].StorageKey || got.FileSize != 101 {
		t.Errorf("GetByID() = %+v, want %+v", got, created[1])
	}

	page, err := repo.ListByStar(ctx, owner.ID, 0, 2)
	if err != nil {
		t.Fatalf("ListByStar() error: %v", err)
	}
	if len(page) != 2 || page[0].ID != created[2].ID || page[1].ID != created[1].ID {
		t.Errorf("ListByStar(0, 2) = %v, want the two newest images", page)
	}

	all, err := repo.ListAllByStar(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListAllByStar() error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(ListAllByStar) = %d, want 3", len(all))
	}

	if err := repo.Delete(ctx, created[0].ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := repo.Delete(ctx, created[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	n, err := repo.DeleteByStar(ctx, owner.ID)
	if err != nil {
		t.Fatalf("DeleteByStar() error: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByStar() removed %d, want 2", n)
	}
	if _, err := repo.GetByID(ctx, created[2].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID after DeleteByStar error = %v, want ErrNotFound", err)
	}
}

func TestRepositoryRejectsUnknownStar(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)

	img := &Image{
		StarID:     uuid.NewString(),
		StorageKey: "star_gallery/stars/orphan/" + uuid.NewString(),
		URL:        "https://cdn.test/orphan",
		Filename:   "orphan.jpg",
		FileSize:   1,
		MimeType:   "image/jpeg",
		UploadedAt: time.Now(),
	}
	if err := repo.Create(context.Background(), img); !errors.Is(err, star.ErrNotFound) {
		t.Errorf("Create() for a missing star error = %v, want star.ErrNotFound", err)
	}
}

func TestRepositoryStarDeleteRemovesLateImages(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	stars := star.NewRepository(pool)
	repo := NewRepository(pool)

	owner, err := stars.Create(ctx, "late-image-test-"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("create star: %v", err)
	}

	// An upload committing after DeleteByStar must not block the star delete.
	if _, err := repo.DeleteByStar(ctx, owner.ID); err != nil {
		t.Fatalf("DeleteByStar() error: %v", err)
	}
	late := &Image{
		StarID:     owner.ID,
		StorageKey: "star_gallery/stars/" + owner.ID + "/" + uuid.NewString() + "_late",
		URL:        "https://cdn.test/late",
		Filename:   "late.jpg",
		FileSize:   1,
		MimeType:   "image/jpeg",
		UploadedAt: time.Now(),
	}
	if err := repo.Create(ctx, late); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := stars.Delete(ctx, owner.ID); err != nil {
		t.Fatalf("star Delete() error = %v, want nil", err)
	}
	if _, err := repo.GetByID(ctx, late.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("late image still present: %v", err)
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: true},
		{name: "wrapped foreign key", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isForeignKeyViolation(tt.err); got != tt.want {
				t.Errorf("isForeignKeyViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
