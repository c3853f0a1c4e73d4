package fileblob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/discochess/barback/internal/blob"
)

func TestBucket_WriteRead(t *testing.T) {
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	if err := b.Write(ctx, "snapshots/cocktails.json.zst", []byte("first")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := b.Write(ctx, "snapshots/cocktails.json.zst", []byte("second")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := b.Read(ctx, "snapshots/cocktails.json.zst")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Read() = %q, want %q", got, "second")
	}
}

func TestBucket_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	b, _ := New(dir)

	if err := b.Write(context.Background(), "data", []byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "data" {
		t.Errorf("directory entries = %v, want only data", entries)
	}
}

func TestBucket_ReadNotFound(t *testing.T) {
	b, _ := New(t.TempDir())

	_, err := b.Read(context.Background(), "missing")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestBucket_Cancelled(t *testing.T) {
	b, _ := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Write(ctx, "data", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if _, err := New(dir); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory %s not created", dir)
	}
}

func TestNew_NotDirectory(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "file")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := New(f.Name()); err == nil {
		t.Error("New() with a file should return error")
	}
}
