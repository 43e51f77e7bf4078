// Package photostore holds captured photo bytes. The storage key returned by
// Save is the opaque photo reference carried through a capture session.
package photostore

import (
	"context"
	"errors"
	"io"
	"net/http"
)

var (
	ErrNotFound         = errors.New("photo not found")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// allowedImageTypes is the set of MIME types http.DetectContentType reports
// for accepted photos. WebP is sniffed separately because the stdlib does not
// recognise it.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// DetectImageType sniffs data and returns its MIME type if it is an accepted
// photo format.
func DetectImageType(data []byte) (string, error) {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp", nil
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, nil
	}
	return "", ErrUnsupportedImage
}
