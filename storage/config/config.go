package config

import (
	"fmt"
	"strings"

	"github.com/bignyap/studio-storage/storage/api"
	"github.com/caarlos0/env"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint   string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey  string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey  string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	BucketName string `env:"MINIO_BUCKET" envDefault:"studio-media"`
	UseSSL     bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// S3Config holds AWS S3 connection configuration
type S3Config struct {
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	BucketName      string `env:"S3_BUCKET" envDefault:"studio-media"`
	Endpoint        string `env:"S3_ENDPOINT"` // Optional: for S3-compatible services
}

// MemoryConfig configures the in-process store used in development.
type MemoryConfig struct {
	// OmitInlineSizes makes listings behave like backends that need a
	// secondary metadata call per file.
	OmitInlineSizes bool `env:"MEMORY_OMIT_INLINE_SIZES" envDefault:"false"`
}

// Config selects and configures a blob store backend.
type Config struct {
	Type   api.StorageType
	MinIO  MinIOConfig
	S3     S3Config
	Memory MemoryConfig
}

type typeConfig struct {
	Type string `env:"STORAGE_TYPE" envDefault:"minio"`
}

// LoadFromEnv loads every backend's settings; only the selected one is used.
func LoadFromEnv() (Config, error) {
	var tc typeConfig
	if err := env.Parse(&tc); err != nil {
		return Config{}, fmt.Errorf("failed to load storage type: %w", err)
	}

	cfg := Config{Type: api.StorageType(strings.ToLower(tc.Type))}
	if err := env.Parse(&cfg.MinIO); err != nil {
		return Config{}, fmt.Errorf("failed to load minio config: %w", err)
	}
	if err := env.Parse(&cfg.S3); err != nil {
		return Config{}, fmt.Errorf("failed to load s3 config: %w", err)
	}
	if err := env.Parse(&cfg.Memory); err != nil {
		return Config{}, fmt.Errorf("failed to load memory storage config: %w", err)
	}
	return cfg, nil
}

// Bucket returns the bucket name of the selected backend.
func (c Config) Bucket() string {
	switch c.Type {
	case api.StorageTypeS3:
		return c.S3.BucketName
	case api.StorageTypeMinio:
		return c.MinIO.BucketName
	default:
		return ""
	}
}
