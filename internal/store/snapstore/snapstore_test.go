package snapstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/discochess/barback/internal/blob"
	"github.com/discochess/barback/internal/blob/fileblob"
	"github.com/discochess/barback/internal/codec"
	"github.com/discochess/barback/internal/codec/gzipcodec"
	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/storetest"
)

// fakeBucket is an in-memory bucket whose writes can be made to fail.
type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writes   int
	writeErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) Read(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (b *fakeBucket) Write(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	b.writes++
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBucket) Close() error { return nil }

func (b *fakeBucket) setWriteErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = err
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock store.Clock) store.Store {
		s, err := Open(context.Background(), newFakeBucket(), WithClock(clock))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		return s
	})
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	clock := storetest.NewClock()

	bucket, err := fileblob.New(dir)
	if err != nil {
		t.Fatalf("fileblob.New() error = %v", err)
	}
	s, err := Open(ctx, bucket, WithClock(clock.Now), WithCodec(gzipcodec.New()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Key() != "cocktails.json.gz" {
		t.Errorf("Key() = %q, want cocktails.json.gz", s.Key())
	}

	rec := storetest.Cocktail("11007", "Margarita")
	rec.Ingredients = []string{"Tequila"}
	if err := s.UpsertAll(ctx, []record.Cocktail{rec, storetest.Cocktail("2", "Mojito")}); err != nil {
		t.Fatalf("UpsertAll() error = %v", err)
	}
	if _, err := s.TrimToRecent(ctx, 1); err != nil {
		t.Fatalf("TrimToRecent() error = %v", err)
	}
	s.Close()

	bucket, _ = fileblob.New(dir)
	reopened, err := Open(ctx, bucket, WithCodec(gzipcodec.New()))
	if err != nil {
		t.Fatalf("Open() after reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "11007" {
		t.Fatalf("GetAll() = %+v, want only 11007", got)
	}
	if !got[0].FetchedAt.Equal(clock.Now()) || got[0].Ingredients[0] != "Tequila" {
		t.Errorf("reopened record = %+v", got[0])
	}
}

func TestStore_FailedWriteKeepsState(t *testing.T) {
	bucket := newFakeBucket()
	ctx := context.Background()
	s, err := Open(ctx, bucket)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("1", "A")}); err != nil {
		t.Fatalf("UpsertAll() error = %v", err)
	}

	errWrite := errors.New("disk full")
	bucket.setWriteErr(errWrite)

	err = s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("2", "B")})
	if !errors.Is(err, errWrite) {
		t.Fatalf("UpsertAll() error = %v, want %v", err, errWrite)
	}
	if err := s.Clear(ctx); !errors.Is(err, errWrite) {
		t.Fatalf("Clear() error = %v, want %v", err, errWrite)
	}

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	if _, ok, _ := s.GetByID(ctx, "2"); ok {
		t.Error("record from failed write is visible")
	}
}

func TestStore_NoWriteForNoop(t *testing.T) {
	bucket := newFakeBucket()
	ctx := context.Background()
	s, _ := Open(ctx, bucket)
	s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("1", "A")})

	before := bucket.writes
	s.TouchAccess(ctx, "missing", storetest.Epoch)
	s.TrimToRecent(ctx, 10)
	if bucket.writes != before {
		t.Errorf("writes = %d, want %d", bucket.writes, before)
	}
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	bucket := newFakeBucket()
	bucket.objects["cocktails.json.zst"] = []byte("garbage")

	if _, err := Open(context.Background(), bucket); !errors.Is(err, codec.ErrCorrupt) {
		t.Errorf("Open() error = %v, want ErrCorrupt", err)
	}
}

func TestOpen_ReadError(t *testing.T) {
	errRead := errors.New("permission denied")
	_, err := Open(context.Background(), readErrBucket{errRead})
	if !errors.Is(err, errRead) {
		t.Errorf("Open() error = %v, want %v", err, errRead)
	}
}

type readErrBucket struct{ err error }

func (b readErrBucket) Read(context.Context, string) ([]byte, error) { return nil, b.err }
func (b readErrBucket) Write(context.Context, string, []byte) error  { return nil }
func (b readErrBucket) Close() error                                 { return nil }
