package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Skryldev/decodekit/source"
)

// S3Client is the part of an S3 client the store needs.  It allows
// injection of an aws-sdk-go-v2 wrapper or a test double.
type S3Client interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// S3 serves objects from an S3-compatible bucket.
type S3 struct {
	client S3Client
	bucket string
}

// NewS3 creates an S3 store.  client must not be nil.
func NewS3(client S3Client, defaultBucket string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 storage: client must not be nil")
	}
	return &S3{client: client, bucket: defaultBucket}, nil
}

func (s *S3) bucketOf(key Key) string {
	if key.Bucket != "" {
		return key.Bucket
	}
	return s.bucket
}

// Source returns a source that fetches key on every Open.  ctx bounds each
// fetch.
func (s *S3) Source(ctx context.Context, key Key) source.Source {
	bucket := s.bucketOf(key)
	return objectSource{name: "s3://" + bucket + "/" + key.Path, open: func() (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(source.ErrOpen, err)
		}
		rc, err := s.client.GetObject(ctx, bucket, key.Path)
		if err != nil {
			return nil, errors.Join(source.ErrOpen, err)
		}
		return rc, nil
	}}
}
