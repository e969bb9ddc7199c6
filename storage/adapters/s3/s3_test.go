package s3_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	s3adapter "github.com/bignyap/studio-storage/storage/adapters/s3"
	"github.com/bignyap/studio-storage/storage/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs  []*s3.ListObjectsV2Input
	outputs []*s3.ListObjectsV2Output
	head    map[string]int64
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	size, ok := f.head[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(size)}, nil
}

func TestList_MapsPrefixesAndContents(t *testing.T) {
	fake := &fakeS3{outputs: []*s3.ListObjectsV2Output{{
		CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("t1/avatars/2024/")}},
		Contents: []types.Object{
			{Key: aws.String("t1/avatars/"), Size: aws.Int64(0)},
			{Key: aws.String("t1/avatars/a.jpg"), Size: aws.Int64(7)},
			{Key: aws.String("t1/avatars/b.jpg")},
		},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}}}
	store := s3adapter.NewWithClient(fake, "bucket")

	page, err := store.List(context.Background(), "t1/avatars/", "", 500)
	require.NoError(t, err)

	require.Len(t, page.Entries, 3)
	assert.True(t, page.Entries[0].IsDir)
	assert.Equal(t, "t1/avatars/a.jpg", page.Entries[1].Path)
	assert.EqualValues(t, 7, *page.Entries[1].Size)
	assert.Nil(t, page.Entries[2].Size)
	assert.Equal(t, "next", page.NextPageToken)

	in := fake.inputs[0]
	assert.Equal(t, "/", aws.ToString(in.Delimiter))
	assert.EqualValues(t, 500, aws.ToInt32(in.MaxKeys))
	assert.Nil(t, in.ContinuationToken)
}

func TestList_PassesContinuationToken(t *testing.T) {
	fake := &fakeS3{outputs: []*s3.ListObjectsV2Output{{IsTruncated: aws.Bool(false)}}}
	store := s3adapter.NewWithClient(fake, "bucket")

	page, err := store.List(context.Background(), "p/", "tok", 0)
	require.NoError(t, err)
	assert.Empty(t, page.NextPageToken)
	assert.Equal(t, "tok", aws.ToString(fake.inputs[0].ContinuationToken))
	assert.EqualValues(t, api.DefaultPageSize, aws.ToInt32(fake.inputs[0].MaxKeys))
}

func TestSize(t *testing.T) {
	store := s3adapter.NewWithClient(&fakeS3{head: map[string]int64{"a": 99}}, "bucket")

	size, err := store.Size(context.Background(), "a")
	require.NoError(t, err)
	assert.EqualValues(t, 99, size)

	_, err = store.Size(context.Background(), "missing")
	assert.True(t, errors.Is(err, api.ErrNotFound))
}
