package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bignyap/studio-storage/logger/api"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"github.com/bignyap/studio-storage/storage/config"
)

// ListObjectsV2API is the slice of the S3 client the store needs.
type ListObjectsV2API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3BlobStore implements api.BlobStore for AWS S3
type S3BlobStore struct {
	client     ListObjectsV2API
	bucketName string
}

// Ensure S3BlobStore implements api.BlobStore
var _ storageapi.BlobStore = (*S3BlobStore)(nil)

// NewS3BlobStore creates a new AWS S3 blob store
func NewS3BlobStore(ctx context.Context, cfg config.S3Config, log api.Logger) (*S3BlobStore, error) {
	log = api.OrDefault(log)

	var awsOpts []func(*awsconfig.LoadOptions) error
	awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Region))

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for most S3-compatible services
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)

	// HeadBucket may be denied even when listing is allowed
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		log.Warn(ctx, "could not verify bucket existence",
			api.String("bucket", cfg.BucketName), api.ErrorField(err))
	}

	return NewWithClient(client, cfg.BucketName), nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client ListObjectsV2API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucketName: bucket}
}

// List returns one page of direct children using the delimiter listing.
func (s *S3BlobStore) List(ctx context.Context, prefix, pageToken string, pageSize int) (storageapi.Page, error) {
	if pageSize <= 0 {
		pageSize = storageapi.DefaultPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucketName),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(int32(pageSize)),
	}
	if pageToken != "" {
		input.ContinuationToken = aws.String(pageToken)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return storageapi.Page{}, fmt.Errorf("failed to list %q: %w", prefix, err)
	}

	page := storageapi.Page{
		Entries: make([]storageapi.Entry, 0, len(out.CommonPrefixes)+len(out.Contents)),
	}
	for _, cp := range out.CommonPrefixes {
		page.Entries = append(page.Entries, storageapi.Entry{Path: aws.ToString(cp.Prefix), IsDir: true})
	}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix {
			continue
		}
		page.Entries = append(page.Entries, storageapi.Entry{Path: key, Size: obj.Size})
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextPageToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// Size returns the object size via HeadObject
func (s *S3BlobStore) Size(ctx context.Context, path string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, fmt.Errorf("%s: %w", path, storageapi.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}
