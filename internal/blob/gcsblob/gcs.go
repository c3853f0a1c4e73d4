// Package gcsblob implements a bucket on Google Cloud Storage.
package gcsblob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/discochess/barback/internal/blob"
)

// Compile-time check that Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)

// Bucket is a Google Cloud Storage bucket.
type Bucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// Option configures a Bucket.
type Option func(*Bucket)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(b *Bucket) {
		b.prefix = blob.NormalizePrefix(prefix)
	}
}

// New creates a GCS bucket using application default credentials.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Bucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	b := &Bucket{
		client: client,
		bucket: client.Bucket(bucketName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Read returns the content of key.
func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := b.bucket.Object(b.objectKey(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Write uploads data to key. GCS commits the object only when the writer is
// closed without error.
func (b *Bucket) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := b.bucket.Object(b.objectKey(key)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing %s: %w", key, err)
	}
	return nil
}

// Close releases resources.
func (b *Bucket) Close() error {
	return b.client.Close()
}

func (b *Bucket) objectKey(key string) string {
	return b.prefix + key
}
