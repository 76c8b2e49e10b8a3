package storage

import (
	"context"
	"io"
)

// Storage abstracts whole-object and ranged reads against remote objects
// addressed by URL.
type Storage interface {
	// Get reads a whole object, such as a manifest document.
	Get(ctx context.Context, url string) (io.ReadCloser, error)

	// ReadRange reads length bytes starting at offset. Implementations must
	// fail rather than return a different span.
	ReadRange(ctx context.Context, url string, offset int64, length int64) (io.ReadCloser, error)
}
