// Package codec compresses cache snapshots.
//
// Snapshots are small, whole documents written on every cache mutation, so
// codecs work on complete buffers and reuse their compressors across calls.
package codec

import (
	"errors"
	"fmt"
)

// MaxDecodedSize bounds a decompressed snapshot. A few hundred cocktails take
// well under a megabyte; anything near this limit is not a snapshot.
const MaxDecodedSize = 64 << 20

// ErrCorrupt is returned when data cannot be decompressed.
var ErrCorrupt = errors.New("codec: corrupt data")

// ErrTooLarge is returned when decompressed data exceeds MaxDecodedSize.
var ErrTooLarge = errors.New("codec: decoded data too large")

// Codec compresses and decompresses snapshot bytes.
// Implementations are safe for concurrent use.
type Codec interface {
	// Encode returns the compressed form of data.
	Encode(data []byte) ([]byte, error)

	// Decode returns the decompressed form of data. Errors wrap ErrCorrupt or
	// ErrTooLarge.
	Decode(data []byte) ([]byte, error)

	// Extension returns the object name suffix without dot, e.g. "zst".
	// Empty means no compression.
	Extension() string
}

// Level trades compression speed for size.
type Level int

const (
	LevelDefault Level = iota
	LevelFastest
	LevelBest
)

// String returns the level name used in configuration.
func (l Level) String() string {
	switch l {
	case LevelFastest:
		return "fastest"
	case LevelBest:
		return "best"
	default:
		return "default"
	}
}

// ParseLevel parses a level name. The empty string is LevelDefault.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "", "default":
		return LevelDefault, nil
	case "fastest":
		return LevelFastest, nil
	case "best":
		return LevelBest, nil
	default:
		return LevelDefault, fmt.Errorf("invalid compression level: %q", name)
	}
}

// Corrupt wraps a decompression failure in ErrCorrupt.
func Corrupt(err error) error {
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}
