package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxFileSize is the largest accepted image payload.
const MaxFileSize = 10 << 20

// AllowedMediaTypes lists the declared content types accepted for upload.
var AllowedMediaTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

// ErrInvalidMediaType is returned for files whose declared type is not allowed.
var ErrInvalidMediaType = errors.New("unsupported media type")

// ErrPayloadTooLarge is returned for files above MaxFileSize.
var ErrPayloadTooLarge = errors.New("file too large")

// ErrNoFiles is returned when an upload batch is empty.
var ErrNoFiles = errors.New("no files provided")

// Upload is one file of an upload batch.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// validate checks the declared media type and size and returns the media
// type to store. The type must equal an allowed entry exactly.
func (u Upload) validate() (string, error) {
	if !isAllowed(u.ContentType) {
		return "", fmt.Errorf("%w: %s has type %q, allowed types: %s",
			ErrInvalidMediaType, u.Filename, u.ContentType, strings.Join(AllowedMediaTypes, ", "))
	}
	if len(u.Data) > MaxFileSize {
		return "", fmt.Errorf("%w: %s is %s, limit is %s",
			ErrPayloadTooLarge, u.Filename, humanize.IBytes(uint64(len(u.Data))), humanize.IBytes(MaxFileSize))
	}
	return u.ContentType, nil
}

func isAllowed(mediaType string) bool {
	for _, t := range AllowedMediaTypes {
		if t == mediaType {
			return true
		}
	}
	return false
}
