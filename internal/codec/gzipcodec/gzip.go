// Package gzipcodec provides gzip snapshot compression.
package gzipcodec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/discochess/barback/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec compresses with pooled gzip writers.
type Codec struct {
	level   int
	writers sync.Pool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the compression level. Default is codec.LevelDefault.
func WithLevel(l codec.Level) Option {
	return func(c *Codec) {
		switch l {
		case codec.LevelFastest:
			c.level = gzip.BestSpeed
		case codec.LevelBest:
			c.level = gzip.BestCompression
		default:
			c.level = gzip.DefaultCompression
		}
	}
}

// New returns a gzip codec.
func New(opts ...Option) *Codec {
	c := &Codec{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode compresses data.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, ok := c.writers.Get().(*gzip.Writer)
	if ok {
		w.Reset(&buf)
	} else {
		var err error
		if w, err = gzip.NewWriterLevel(&buf, c.level); err != nil {
			return nil, fmt.Errorf("creating gzip writer: %w", err)
		}
	}
	defer c.writers.Put(w)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flushing: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses data.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, codec.Corrupt(err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, codec.MaxDecodedSize+1))
	if err != nil {
		return nil, codec.Corrupt(err)
	}
	if len(out) > codec.MaxDecodedSize {
		return nil, codec.ErrTooLarge
	}
	return out, nil
}

// Extension returns "gz".
func (c *Codec) Extension() string {
	return "gz"
}
