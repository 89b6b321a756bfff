package catalogsync

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textilepro/internal/config"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiverPutsExport(t *testing.T) {
	put := &fakePutter{}
	a := NewS3Archiver(put, "textilepro-exports")
	body := []byte(`{"products":[]}`)

	require.NoError(t, a.Archive(context.Background(), "job-42", body))
	require.NotNil(t, put.in)
	assert.Equal(t, "textilepro-exports", aws.ToString(put.in.Bucket))
	assert.Equal(t, "exports/job-42.json", aws.ToString(put.in.Key))
	assert.Equal(t, int64(len(body)), aws.ToInt64(put.in.ContentLength))
	assert.Equal(t, "application/json", aws.ToString(put.in.ContentType))
	assert.Equal(t, body, put.body)
}

func TestS3ArchiverWrapsError(t *testing.T) {
	boom := errors.New("access denied")
	a := NewS3Archiver(&fakePutter{err: boom}, "b")

	err := a.Archive(context.Background(), "job-1", []byte("x"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "job-1")
}

func TestNoBucketDisablesArchive(t *testing.T) {
	a, err := NewS3ArchiverFromConfig(context.Background(), config.S3Config{Region: "eu-west-3"})
	require.NoError(t, err)
	assert.Nil(t, a)
}
