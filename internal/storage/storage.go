// Package storage holds media blobs in an S3-compatible object store.
package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is what the media service programs against. The concrete
// implementation is S3 (below); tests use an in-memory fake.
type BlobStore interface {
	// Put uploads a blob and returns the URL it will be served from.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)

	// Delete removes a blob. Deleting a missing key is not an error —
	// the metadata row is authoritative and delete must be retryable by
	// the client after a partial failure.
	Delete(ctx context.Context, key string) error

	// PresignGet returns a time-limited download URL for a blob. The
	// server hands the URL to the client instead of proxying bytes.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
