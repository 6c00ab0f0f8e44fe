package media

import (
	"errors"
	"testing"
)

func TestUploadValidate(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int
		wantErr     error
	}{
		{name: "jpeg", contentType: "image/jpeg", size: 1},
		{name: "jpg alias", contentType: "image/jpg", size: 1},
		{name: "png", contentType: "image/png", size: 1},
		{name: "gif", contentType: "image/gif", size: 1},
		{name: "webp", contentType: "image/webp", size: 1},
		{name: "exactly at limit", contentType: "image/png", size: MaxFileSize},
		{name: "one byte over limit", contentType: "image/png", size: MaxFileSize + 1, wantErr: ErrPayloadTooLarge},
		{name: "upper case", contentType: "IMAGE/PNG", size: 1, wantErr: ErrInvalidMediaType},
		{name: "mixed case", contentType: "Image/Jpeg", size: 1, wantErr: ErrInvalidMediaType},
		{name: "with parameter", contentType: "image/png; charset=binary", size: 1, wantErr: ErrInvalidMediaType},
		{name: "surrounding space", contentType: " image/gif", size: 1, wantErr: ErrInvalidMediaType},
		{name: "empty", contentType: "", size: 1, wantErr: ErrInvalidMediaType},
		{name: "not an image", contentType: "application/octet-stream", size: 1, wantErr: ErrInvalidMediaType},
		{name: "bmp", contentType: "image/bmp", size: 1, wantErr: ErrInvalidMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Upload{Filename: "f", ContentType: tt.contentType, Data: make([]byte, tt.size)}
			got, err := u.validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate() error: %v", err)
			}
			if got != tt.contentType {
				t.Errorf("validate() = %q, want %q", got, tt.contentType)
			}
		})
	}
}
