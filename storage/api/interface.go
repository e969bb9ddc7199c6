package api

import (
	"context"
	"errors"
)

// BlobStore is the discovery side of object storage: paged listing and
// per-object size lookup. Implementations: MinIO, AWS S3, in-memory.
type BlobStore interface {
	// List returns one page of the direct children of prefix. Directories
	// are reported as entries with IsDir set. Pass the previous page's
	// NextPageToken to continue; an empty token starts from the beginning.
	List(ctx context.Context, prefix, pageToken string, pageSize int) (Page, error)

	// Size returns the size in bytes of a single object.
	Size(ctx context.Context, path string) (int64, error)
}

// Entry is one child returned by List.
type Entry struct {
	// Path is the full object key (directories end with "/").
	Path  string
	IsDir bool
	// Size is nil when the backend does not return it inline; callers
	// must fall back to BlobStore.Size.
	Size *int64
}

// Page is one listing response.
type Page struct {
	Entries []Entry
	// NextPageToken is empty when the listing is exhausted.
	NextPageToken string
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeMinio  StorageType = "minio"
	StorageTypeS3     StorageType = "s3"
	StorageTypeMemory StorageType = "memory"
)

// DefaultPageSize matches the 1000-key ceiling of S3-compatible listings.
const DefaultPageSize = 1000

// ErrNotFound is returned by Size when the object does not exist.
var ErrNotFound = errors.New("object not found")

// SizeOf is a convenience for building entries with inline sizes.
func SizeOf(n int64) *int64 {
	return &n
}
