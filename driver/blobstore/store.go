// Package blobstore provides the filesystem, S3, and in-memory backends
// behind the upload and proxy stores.
package blobstore

import (
	"fmt"

	"imagehoster/port/store_port"
)

// Open constructs a blob store for the given backend type.
func Open(storeType, path, s3Bucket, s3Region string) (store_port.BlobStore, error) {
	switch storeType {
	case "fs":
		return NewFSStore(path)
	case "s3":
		if s3Bucket == "" {
			return nil, fmt.Errorf("s3 store requires a bucket")
		}
		return NewS3Store(s3Bucket, s3Region)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", storeType)
	}
}
