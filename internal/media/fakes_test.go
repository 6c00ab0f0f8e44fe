package media

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stargallery/service/internal/image"
	"github.com/stargallery/service/internal/star"
	"github.com/stargallery/service/internal/storage"
)

type fakeStars struct {
	m         sync.Mutex
	stars     map[string]*star.Star
	deleteErr error
}

func newFakeStars(ids ...string) *fakeStars {
	f := &fakeStars{stars: make(map[string]*star.Star)}
	for _, id := range ids {
		f.stars[id] = &star.Star{ID: id, Name: "star " + id, CreatedAt: time.Now()}
	}
	return f
}

func (f *fakeStars) GetByID(_ context.Context, id string) (*star.Star, error) {
	f.m.Lock()
	defer f.m.Unlock()
	s, ok := f.stars[id]
	if !ok {
		return nil, star.ErrNotFound
	}
	return s, nil
}

func (f *fakeStars) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.m.Lock()
	defer f.m.Unlock()
	if _, ok := f.stars[id]; !ok {
		return star.ErrNotFound
	}
	delete(f.stars, id)
	return nil
}

func (f *fakeStars) exists(id string) bool {
	f.m.Lock()
	defer f.m.Unlock()
	_, ok := f.stars[id]
	return ok
}

type fakeImages struct {
	m               sync.Mutex
	images          map[string]image.Image
	createErr       error
	deleteByStarErr error
	creates         atomic.Int32
}

func newFakeImages() *fakeImages {
	return &fakeImages{images: make(map[string]image.Image)}
}

func (f *fakeImages) Create(ctx context.Context, img *image.Image) error {
	f.creates.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.createErr != nil {
		return f.createErr
	}
	f.m.Lock()
	defer f.m.Unlock()
	img.ID = uuid.NewString()
	f.images[img.ID] = *img
	return nil
}

func (f *fakeImages) GetByID(_ context.Context, id string) (*image.Image, error) {
	f.m.Lock()
	defer f.m.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, image.ErrNotFound
	}
	return &img, nil
}

func (f *fakeImages) ListByStar(ctx context.Context, starID string, offset, limit int) ([]image.Image, error) {
	all, _ := f.ListAllByStar(ctx, starID)
	sort.Slice(all, func(i, j int) bool { return all[i].UploadedAt.After(all[j].UploadedAt) })
	if offset >= len(all) {
		return []image.Image{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeImages) ListAllByStar(_ context.Context, starID string) ([]image.Image, error) {
	f.m.Lock()
	defer f.m.Unlock()
	out := make([]image.Image, 0)
	for _, img := range f.images {
		if img.StarID == starID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeImages) Delete(_ context.Context, id string) error {
	f.m.Lock()
	defer f.m.Unlock()
	if _, ok := f.images[id]; !ok {
		return image.ErrNotFound
	}
	delete(f.images, id)
	return nil
}

func (f *fakeImages) DeleteByStar(_ context.Context, starID string) (int64, error) {
	if f.deleteByStarErr != nil {
		return 0, f.deleteByStarErr
	}
	f.m.Lock()
	defer f.m.Unlock()
	var n int64
	for id, img := range f.images {
		if img.StarID == starID {
			delete(f.images, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeImages) countForStar(starID string) int {
	imgs, _ := f.ListAllByStar(context.Background(), starID)
	return len(imgs)
}

// seed inserts n images for starID with distinct upload times and stored keys.
func (f *fakeImages) seed(starID string, n int) []image.Image {
	f.m.Lock()
	defer f.m.Unlock()
	base := time.Now().Add(-time.Hour)
	out := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		img := image.Image{
			ID:         uuid.NewString(),
			StarID:     starID,
			StorageKey: fmt.Sprintf("%s/%s/seed-%d", storage.KeyNamespace, starID, i),
			URL:        fmt.Sprintf("https://cdn.test/seed-%d", i),
			Filename:   fmt.Sprintf("seed-%d.jpg", i),
			FileSize:   10,
			MimeType:   "image/jpeg",
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}
		f.images[img.ID] = img
		out = append(out, img)
	}
	return out
}

type fakeObjects struct {
	m       sync.Mutex
	objects map[string][]byte

	// delay is applied to every call; calls abort early when ctx ends.
	delay      time.Duration
	failUpload func(key string) bool
	keepObject func(key string) bool // a false return makes Delete report failure

	uploads atomic.Int32
	deletes atomic.Int32
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeObjects) Upload(ctx context.Context, key string, data []byte, _ string) (string, error) {
	f.uploads.Add(1)
	if err := f.wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrUploadFailed, err)
	}
	if f.failUpload != nil && f.failUpload(key) {
		return "", fmt.Errorf("%w: connection reset", storage.ErrUploadFailed)
	}
	f.m.Lock()
	defer f.m.Unlock()
	f.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) bool {
	f.deletes.Add(1)
	if err := f.wait(ctx); err != nil {
		return false
	}
	if f.keepObject != nil && f.keepObject(key) {
		return false
	}
	f.m.Lock()
	defer f.m.Unlock()
	if _, ok := f.objects[key]; !ok {
		return false
	}
	delete(f.objects, key)
	return true
}

func (f *fakeObjects) put(key string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.objects[key] = []byte("x")
}

func (f *fakeObjects) has(key string) bool {
	f.m.Lock()
	defer f.m.Unlock()
	_, ok := f.objects[key]
	return ok
}

const testStarID = "6f1c2f0e-8d7b-4b8e-9a53-2b7c1f0d9e11"

type fixture struct {
	stars   *fakeStars
	images  *fakeImages
	objects *fakeObjects
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stars:   newFakeStars(testStarID),
		images:  newFakeImages(),
		objects: newFakeObjects(),
	}
	f.orch = NewOrchestrator(f.stars, f.images, f.objects, 5*time.Second, zerolog.Nop())
	return f
}

func jpeg(name string) Upload {
	return Upload{Filename: name, ContentType: "image/jpeg", Data: []byte("jpeg-bytes-" + name)}
}

var errStoreDown = errors.New("metadata store down")
