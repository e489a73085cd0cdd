package store_port

import (
	"context"
	"io"
)

// BlobStore defines the contract shared by the upload and proxy stores.
// Concurrent writers for the same key are permitted; last writer wins.
// Reads of an absent key return an error wrapping fs.ErrNotExist so
// callers can tell a miss from a failing backend.
type BlobStore interface {
	// Exists reports whether a blob is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// ReadAll returns the full blob bytes for key.
	ReadAll(ctx context.Context, key string) ([]byte, error)
	// OpenRead returns a streaming reader for key.
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)
	// Write stores data under key, replacing any existing blob.
	Write(ctx context.Context, key string, data []byte) error
	// Remove deletes the blob under key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error
}
