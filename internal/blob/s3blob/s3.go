// Package s3blob implements a bucket on AWS S3 or an S3-compatible service.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/barback/internal/blob"
)

// Compile-time check that Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)

// Bucket is an S3 bucket.
type Bucket struct {
	client   *s3.Client
	bucket   string
	prefix   string
	region   string
	endpoint string
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(b *Bucket) {
		b.prefix = blob.NormalizePrefix(prefix)
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(b *Bucket) {
		b.region = region
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
// Path-style addressing is used with a custom endpoint.
func WithEndpoint(endpoint string) Option {
	return func(b *Bucket) {
		b.endpoint = endpoint
	}
}

// New creates an S3 bucket using the default AWS credential chain.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Bucket, error) {
	b := &Bucket{bucket: bucketName}
	for _, opt := range opts {
		opt(b)
	}

	var loadOpts []func(*config.LoadOptions) error
	if b.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(b.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	b.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
	})
	return b, nil
}

// Read returns the content of key.
func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", key, err)
	}
	return data, nil
}

// Write uploads data to key. S3 PUTs replace objects atomically.
func (b *Bucket) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Close releases resources.
func (b *Bucket) Close() error {
	// S3 client doesn't need explicit closing.
	return nil
}

func (b *Bucket) objectKey(key string) string {
	return b.prefix + key
}
