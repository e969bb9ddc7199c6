package factory

import (
	"context"
	"fmt"

	"github.com/bignyap/studio-storage/logger/api"
	memoryadapter "github.com/bignyap/studio-storage/storage/adapters/memory"
	minioadapter "github.com/bignyap/studio-storage/storage/adapters/minio"
	s3adapter "github.com/bignyap/studio-storage/storage/adapters/s3"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"github.com/bignyap/studio-storage/storage/config"
)

// NewBlobStore creates the blob store selected by cfg.Type.
// Supported types: "minio" (default), "s3", "memory"
func NewBlobStore(ctx context.Context, cfg config.Config, log api.Logger) (storageapi.BlobStore, error) {
	switch cfg.Type {
	case storageapi.StorageTypeMinio, "":
		return minioadapter.NewMinIOBlobStore(ctx, cfg.MinIO)

	case storageapi.StorageTypeS3:
		return s3adapter.NewS3BlobStore(ctx, cfg.S3, log)

	case storageapi.StorageTypeMemory:
		return memoryadapter.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s (supported: minio, s3, memory)", cfg.Type)
	}
}
