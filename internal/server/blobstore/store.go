// Package blobstore keeps receipt bytes under opaque storage keys.
//
// Two backends are provided: S3Store for S3-compatible object storage
// (MinIO in development) and FSStore for a local directory.
package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrBlobMissing is returned by Get when nothing is stored under the key.
var ErrBlobMissing = errors.New("blob missing")

// Store is the byte storage used by the receipt service. Keys are chosen by
// the caller and never reused.
type Store interface {
	// Put stores exactly size bytes read from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the blob and reports its stored size.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by backends that can hand out time-limited
// direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (url string, expiresAt time.Time, err error)
}
