// Package media fans image uploads and deletions for a star out to the object
// store and the metadata store concurrently.
//
// Upload batches are fail-fast: the first failing item decides the result and
// cancels its siblings, but records committed before that point are kept.
// Deletes are best-effort on the object store and authoritative on metadata.
package media

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stargallery/service/internal/image"
	"github.com/stargallery/service/internal/star"
	"github.com/stargallery/service/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// maxPage keeps (page-1)*limit within int for any clamped limit.
	maxPage = math.MaxInt / MaxPageSize
)

// StarStore is the star persistence the orchestrator needs.
type StarStore interface {
	GetByID(ctx context.Context, id string) (*star.Star, error)
	Delete(ctx context.Context, id string) error
}

// ImageStore is the image persistence the orchestrator needs.
type ImageStore interface {
	Create(ctx context.Context, img *image.Image) error
	GetByID(ctx context.Context, id string) (*image.Image, error)
	ListByStar(ctx context.Context, starID string, offset, limit int) ([]image.Image, error)
	ListAllByStar(ctx context.Context, starID string) ([]image.Image, error)
	Delete(ctx context.Context, id string) error
	DeleteByStar(ctx context.Context, starID string) (int64, error)
}

// DeleteResult is the outcome of one best-effort object deletion.
type DeleteResult struct {
	ImageID string
	Key     string
	Removed bool
}

// Orchestrator runs per-image operations concurrently and applies the batch policy.
type Orchestrator struct {
	stars       StarStore
	images      ImageStore
	objects     storage.ObjectStore
	itemTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

// NewOrchestrator wires an Orchestrator. itemTimeout bounds every single
// upload or delete issued on behalf of a batch.
func NewOrchestrator(stars StarStore, images ImageStore, objects storage.ObjectStore, itemTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		stars:       stars,
		images:      images,
		objects:     objects,
		itemTimeout: itemTimeout,
		log:         logger.With().Str("component", "media").Logger(),
		now:         time.Now,
	}
}

// UploadBatch validates, uploads and records every file concurrently.
// The returned images are in input order.
func (o *Orchestrator) UploadBatch(ctx context.Context, starID string, files []Upload) ([]image.Image, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if _, err := o.stars.GetByID(ctx, starID); err != nil {
		return nil, err
	}

	start := o.now()
	results := make([]*image.Image, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			img, err := o.uploadOne(gctx, starID, f)
			if err != nil {
				return err
			}
			results[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		committed := 0
		for _, img := range results {
			if img != nil {
				committed++
			}
		}
		o.log.Warn().Err(err).
			Str("star_id", starID).
			Int("files", len(files)).
			Int("committed", committed).
			Msg("upload batch failed; committed images are kept")
		return nil, err
	}

	out := make([]image.Image, len(results))
	for i, img := range results {
		out[i] = *img
	}
	o.log.Info().
		Str("star_id", starID).
		Int("files", len(files)).
		Dur("elapsed", o.now().Sub(start)).
		Msg("upload batch complete")
	return out, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, starID string, f Upload) (*image.Image, error) {
	mediaType, err := f.validate()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	key := storage.GenerateKey(starID, f.Filename)
	url, err := o.objects.Upload(ctx, key, f.Data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
	}

	img := &image.Image{
		StarID:     starID,
		StorageKey: key,
		URL:        url,
		Filename:   f.Filename,
		FileSize:   int64(len(f.Data)),
		MimeType:   mediaType,
		UploadedAt: o.now().UTC(),
	}
	if err := o.images.Create(ctx, img); err != nil {
		o.log.Warn().Err(err).Str("key", key).Msg("object stored without metadata record")
		return nil, fmt.Errorf("persist %s: %w", f.Filename, err)
	}
	return img, nil
}

// DeleteStarCascade removes a star, its image records and, best-effort,
// their stored objects. Object deletion failures never fail the cascade.
func (o *Orchestrator) DeleteStarCascade(ctx context.Context, starID string) error {
	if _, err := o.stars.GetByID(ctx, starID); err != nil {
		return err
	}

	imgs, err := o.images.ListAllByStar(ctx, starID)
	if err != nil {
		return err
	}

	results := o.deleteObjects(ctx, imgs)
	failed := 0
	for _, r := range results {
		if !r.Removed {
			failed++
			o.log.Warn().Str("image_id", r.ImageID).Str("key", r.Key).Msg("stored object not removed")
		}
	}

	removed, err := o.images.DeleteByStar(ctx, starID)
	if err != nil {
		return err
	}
	if err := o.stars.Delete(ctx, starID); err != nil {
		return err
	}

	o.log.Info().
		Str("star_id", starID).
		Int64("images", removed).
		Int("object_failures", failed).
		Msg("star deleted")
	return nil
}

// deleteObjects issues one delete per image concurrently and waits for all
// of them to settle.
func (o *Orchestrator) deleteObjects(ctx context.Context, imgs []image.Image) []DeleteResult {
	results := make([]DeleteResult, len(imgs))

	var wg sync.WaitGroup
	for i, img := range imgs {
		i, img := i, img
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, o.itemTimeout)
			defer cancel()
			results[i] = DeleteResult{
				ImageID: img.ID,
				Key:     img.StorageKey,
				Removed: o.objects.Delete(ctx, img.StorageKey),
			}
		}()
	}
	wg.Wait()

	return results
}

// DeleteImage removes a single image. The stored object is removed
// best-effort before the record.
func (o *Orchestrator) DeleteImage(ctx context.Context, imageID string) error {
	img, err := o.images.GetByID(ctx, imageID)
	if err != nil {
		return err
	}

	ctx2, cancel := context.WithTimeout(ctx, o.itemTimeout)
	removed := o.objects.Delete(ctx2, img.StorageKey)
	cancel()
	if !removed {
		o.log.Warn().Str("image_id", img.ID).Str("key", img.StorageKey).Msg("stored object not removed")
	}

	return o.images.Delete(ctx, imageID)
}

// GetImage returns a single image record.
func (o *Orchestrator) GetImage(ctx context.Context, imageID string) (*image.Image, error) {
	return o.images.GetByID(ctx, imageID)
}

// ListImages returns one page of a star's images, newest first. page starts
// at 1; out-of-range values are clamped.
func (o *Orchestrator) ListImages(ctx context.Context, starID string, page, limit int) ([]image.Image, error) {
	if _, err := o.stars.GetByID(ctx, starID); err != nil {
		return nil, err
	}
	page, limit = clampPage(page, limit)
	return o.images.ListByStar(ctx, starID, (page-1)*limit, limit)
}

func clampPage(page, limit int) (int, int) {
	switch {
	case page < 1:
		page = 1
	case page > maxPage:
		page = maxPage
	}
	switch {
	case limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}
