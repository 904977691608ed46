package ports

import (
	"context"
	"io"
)

// ObjectStore persists evidence blobs under an opaque key. The stable
// retrieval URL returned to callers is derived from the evidence id by
// the usecase layer, not by the store itself.
type ObjectStore interface {
	// Put streams size bytes of r to key with the given content type and
	// metadata.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error

	// Get opens the object at key for reading. Returns os.ErrNotExist (or
	// a wrapped equivalent) when the object is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
