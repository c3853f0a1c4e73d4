// Package noopcodec stores snapshots uncompressed, which keeps them readable
// with ordinary tools.
package noopcodec

import (
	"bytes"

	"github.com/discochess/barback/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = Codec{}

// Codec passes data through unchanged.
type Codec struct{}

// New returns a pass-through codec.
func New() Codec {
	return Codec{}
}

// Encode returns a copy of data.
func (Codec) Encode(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

// Decode returns a copy of data.
func (Codec) Decode(data []byte) ([]byte, error) {
	if len(data) > codec.MaxDecodedSize {
		return nil, codec.ErrTooLarge
	}
	return bytes.Clone(data), nil
}

// Extension returns the empty string: the object keeps its .json name.
func (Codec) Extension() string {
	return ""
}
