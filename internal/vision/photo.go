package vision

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vbonduro/wastecapture/internal/photostore"
)

// ReadPhoto loads the bytes and MIME type of photoRef for model-backed
// classifiers. Failures are classification failures.
func ReadPhoto(ctx context.Context, photos photostore.PhotoStore, photoRef string) ([]byte, string, error) {
	rc, mimeType, err := photos.Get(ctx, photoRef)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to open photo: %v", ErrClassificationFailed, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			slog.Error("failed to close photo", "photo", photoRef, "error", err)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to read photo: %v", ErrClassificationFailed, err)
	}
	return data, mimeType, nil
}
