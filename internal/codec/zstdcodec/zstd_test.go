package zstdcodec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/discochess/barback/internal/codec"
)

func TestCodec_Extension(t *testing.T) {
	if got := New().Extension(); got != "zst" {
		t.Errorf("Extension() = %q, want %q", got, "zst")
	}
}

func TestEncodeDecode(t *testing.T) {
	original := []byte(`{"version":1,"records":[` +
		strings.TrimSuffix(strings.Repeat(`{"id":"11007","name":"Margarita","category":"Tequila","rating":4.5},`, 50), ",") +
		`]}`)

	for _, level := range []codec.Level{codec.LevelDefault, codec.LevelFastest, codec.LevelBest} {
		t.Run(level.String(), func(t *testing.T) {
			c := New(WithLevel(level))

			compressed, err := c.Encode(original)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(compressed) >= len(original) {
				t.Errorf("compressed size %d not smaller than %d", len(compressed), len(original))
			}

			got, err := c.Decode(compressed)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(got, original) {
				t.Error("Decode(Encode(x)) != x")
			}
		})
	}
}

func TestDecode_InvalidData(t *testing.T) {
	_, err := New().Decode([]byte("not zstd"))
	if !errors.Is(err, codec.ErrCorrupt) {
		t.Errorf("Decode() error = %v, want ErrCorrupt", err)
	}
}
