package minio

import (
	"context"
	"fmt"
	"strings"

	"github.com/bignyap/studio-storage/storage/api"
	"github.com/bignyap/studio-storage/storage/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// maxRune sorts after every key that shares a directory prefix, so a
// resume key of dir+maxRune skips the whole directory in one step.
const maxRune = "\U0010FFFF"

// MinIOBlobStore implements api.BlobStore for MinIO
type MinIOBlobStore struct {
	client     *minio.Client
	bucketName string
}

// Ensure MinIOBlobStore implements api.BlobStore
var _ api.BlobStore = (*MinIOBlobStore)(nil)

// NewMinIOBlobStore connects to MinIO and verifies the bucket exists.
func NewMinIOBlobStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.BucketName)
	}

	return &MinIOBlobStore{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// List returns one page of direct children. The page token is the key to
// resume after; minio-go pages internally, so the channel is cut short once
// a page is full and the listing context is cancelled.
func (s *MinIOBlobStore) List(ctx context.Context, prefix, pageToken string, pageSize int) (api.Page, error) {
	if pageSize <= 0 {
		pageSize = api.DefaultPageSize
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(listCtx, s.bucketName, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  false,
		StartAfter: pageToken,
		MaxKeys:    pageSize,
	})

	var page api.Page
	for obj := range objects {
		if obj.Err != nil {
			return api.Page{}, fmt.Errorf("failed to list %q: %w", prefix, obj.Err)
		}
		if obj.Key == prefix {
			// folder marker object for the prefix itself
			continue
		}
		if len(page.Entries) == pageSize {
			last := page.Entries[len(page.Entries)-1]
			page.NextPageToken = resumeAfter(last)
			return page, nil
		}
		page.Entries = append(page.Entries, toEntry(obj))
	}

	if err := ctx.Err(); err != nil {
		return api.Page{}, err
	}
	return page, nil
}

// Size returns the object size via a HEAD request
func (s *MinIOBlobStore) Size(ctx context.Context, path string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, fmt.Errorf("%s: %w", path, api.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return info.Size, nil
}

func toEntry(obj minio.ObjectInfo) api.Entry {
	if strings.HasSuffix(obj.Key, "/") {
		return api.Entry{Path: obj.Key, IsDir: true}
	}
	return api.Entry{Path: obj.Key, Size: api.SizeOf(obj.Size)}
}

func resumeAfter(e api.Entry) string {
	if e.IsDir {
		return e.Path + maxRune
	}
	return e.Path
}
