// Package storage is the single-item bridge to the remote object store that
// holds image payloads. Batching lives in the media package; everything here
// handles exactly one object per call.
package storage

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// KeyNamespace prefixes every storage key written by the service.
const KeyNamespace = "star_gallery/stars"

// ErrStorageUnavailable is returned when the store was never configured with credentials.
var ErrStorageUnavailable = errors.New("object storage is not configured")

// ErrUploadFailed wraps transport or service errors raised during an upload.
var ErrUploadFailed = errors.New("upload to object storage failed")

// ObjectStore uploads and deletes single objects.
type ObjectStore interface {
	// Upload stores data under key and returns a public URL for it.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object at key. It reports true only when the store
	// confirmed an existing object was removed, and never returns an error.
	Delete(ctx context.Context, key string) bool
}

var pathUnsafe = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// GenerateKey builds a storage key for a star's image. The random token alone
// guarantees uniqueness; the sanitized filename only aids humans browsing the bucket.
func GenerateKey(starID, filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	return path.Join(KeyNamespace, starID, uuid.NewString()+"_"+pathUnsafe.Replace(name))
}

// pickURL returns the first https candidate, or failing that the first
// non-empty one.
func pickURL(candidates ...string) string {
	for _, c := range candidates {
		if u, err := url.Parse(c); err == nil && u.Scheme == "https" && u.Host != "" {
			return c
		}
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// Unavailable is the store used when no credentials were configured.
// Uploads fail with ErrStorageUnavailable and deletes report false.
type Unavailable struct{}

// Upload always fails with ErrStorageUnavailable.
func (Unavailable) Upload(context.Context, string, []byte, string) (string, error) {
	return "", ErrStorageUnavailable
}

// Delete always reports false.
func (Unavailable) Delete(context.Context, string) bool {
	return false
}
