// Package zstdcodec provides zstd snapshot compression.
package zstdcodec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/barback/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec compresses with a shared zstd encoder and decoder. Both are created on
// first use and are safe for concurrent EncodeAll and DecodeAll calls.
type Codec struct {
	level zstd.EncoderLevel

	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	initErr error
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the compression level. Default is codec.LevelDefault.
func WithLevel(l codec.Level) Option {
	return func(c *Codec) {
		c.level = encoderLevel(l)
	}
}

// New returns a zstd codec.
func New(opts ...Option) *Codec {
	c := &Codec{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func encoderLevel(l codec.Level) zstd.EncoderLevel {
	switch l {
	case codec.LevelFastest:
		return zstd.SpeedFastest
	case codec.LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (c *Codec) init() error {
	c.once.Do(func() {
		c.encoder, c.initErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(c.level),
			zstd.WithEncoderConcurrency(1),
		)
		if c.initErr != nil {
			return
		}
		c.decoder, c.initErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(codec.MaxDecodedSize),
		)
	})
	return c.initErr
}

// Encode compresses data.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// Decode decompresses data.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	out, err := c.decoder.DecodeAll(data, nil)
	switch {
	case errors.Is(err, zstd.ErrDecoderSizeExceeded), errors.Is(err, zstd.ErrWindowSizeExceeded):
		return nil, fmt.Errorf("%w: %w", codec.ErrTooLarge, err)
	case err != nil:
		return nil, codec.Corrupt(err)
	}
	return out, nil
}

// Extension returns "zst".
func (c *Codec) Extension() string {
	return "zst"
}
