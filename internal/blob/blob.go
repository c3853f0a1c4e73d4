// Package blob defines the object storage that snapshots are persisted to.
package blob

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Bucket stores whole objects by key.
type Bucket interface {
	// Read returns the content of key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the content of key. Readers never observe a partial write.
	Write(ctx context.Context, key string, data []byte) error

	// Close releases any resources held by the bucket.
	Close() error
}

// NormalizePrefix returns prefix with exactly one trailing slash, or "" for an
// empty prefix.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
