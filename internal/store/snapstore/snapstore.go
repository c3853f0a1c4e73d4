// Package snapstore implements a store that keeps records in memory and
// persists every change as a compressed snapshot object in a blob bucket.
//
// A mutation becomes visible only after its snapshot was written, so readers
// never see state that would be lost on restart.
package snapstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/barback/internal/blob"
	"github.com/discochess/barback/internal/codec"
	"github.com/discochess/barback/internal/codec/zstdcodec"
	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/memstore"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// snapshotVersion is bumped when the snapshot layout changes incompatibly.
const snapshotVersion = 1

// DefaultName is the snapshot object name before the codec extension.
const DefaultName = "cocktails.json"

// ErrVersion is returned when a snapshot was written by an incompatible version.
var ErrVersion = errors.New("snapstore: unsupported snapshot version")

type snapshot struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Records []record.Cocktail `json:"records"`
}

// Store is a snapshot-persisted store.
type Store struct {
	index  *memstore.Store
	bucket blob.Bucket
	codec  codec.Codec
	name   string
	clock  store.Clock
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the snapshot compression. Defaults to zstd.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithName sets the snapshot object name, before the codec extension.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithClock sets the time source used to stamp written records.
func WithClock(clock store.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open loads the snapshot from bucket, or starts empty if there is none.
// The store takes ownership of bucket and closes it on Close.
func Open(ctx context.Context, bucket blob.Bucket, opts ...Option) (*Store, error) {
	s := &Store{
		bucket: bucket,
		codec:  zstdcodec.New(),
		name:   DefaultName,
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = memstore.New(memstore.WithClock(s.clock))

	data, err := bucket.Read(ctx, s.Key())
	switch {
	case errors.Is(err, blob.ErrNotFound):
		s.logger.Debug("no snapshot, starting empty", zap.String("key", s.Key()))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	recs, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	s.index.Load(recs)
	s.logger.Debug("snapshot loaded",
		zap.String("key", s.Key()),
		zap.Int("records", len(recs)),
	)
	return s, nil
}

// Key returns the object key of the snapshot.
func (s *Store) Key() string {
	if ext := s.codec.Extension(); ext != "" {
		return s.name + "." + ext
	}
	return s.name
}

// UpsertAll writes recs atomically, stamping both timestamps.
func (s *Store) UpsertAll(ctx context.Context, recs []record.Cocktail) error {
	return s.mutate(ctx, memstore.Upsert(recs))
}

// GetAll returns every record, most recently accessed first.
func (s *Store) GetAll(ctx context.Context) ([]record.Cocktail, error) {
	return s.index.GetAll(ctx)
}

// GetByID returns the record with id.
func (s *Store) GetByID(ctx context.Context, id string) (record.Cocktail, bool, error) {
	return s.index.GetByID(ctx, id)
}

// SearchByText returns records whose name or ingredients contain query.
func (s *Store) SearchByText(ctx context.Context, query string) ([]record.Cocktail, error) {
	return s.index.SearchByText(ctx, query)
}

// GetByCategory returns records in category, best rated first.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]record.Cocktail, error) {
	return s.index.GetByCategory(ctx, category)
}

// GetByMinRating returns records rated at least min, best rated first.
func (s *Store) GetByMinRating(ctx context.Context, min float64) ([]record.Cocktail, error) {
	return s.index.GetByMinRating(ctx, min)
}

// TouchAccess sets LastAccessedAt of id.
func (s *Store) TouchAccess(ctx context.Context, id string, at time.Time) error {
	if _, ok, err := s.index.GetByID(ctx, id); err != nil || !ok {
		return err
	}
	return s.mutate(ctx, memstore.Touch(id, at))
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// OldestFetchedAt returns the earliest FetchedAt.
func (s *Store) OldestFetchedAt(ctx context.Context) (time.Time, bool, error) {
	return s.index.OldestFetchedAt(ctx)
}

// TrimToRecent keeps the limit most recently accessed records.
func (s *Store) TrimToRecent(ctx context.Context, limit int) (int, error) {
	n, err := s.index.Count(ctx)
	if err != nil || n <= limit {
		return 0, err
	}
	var trimmed int
	if err := s.mutate(ctx, memstore.Trim(limit, &trimmed)); err != nil {
		return 0, err
	}
	return trimmed, nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, memstore.ClearAll)
}

// Close closes the index and the bucket.
func (s *Store) Close() error {
	return errors.Join(s.index.Close(), s.bucket.Close())
}

func (s *Store) mutate(ctx context.Context, fn func(map[string]record.Cocktail, time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.index.Apply(fn, func(recs []record.Cocktail) error {
		return s.save(ctx, recs)
	})
}

func (s *Store) save(ctx context.Context, recs []record.Cocktail) error {
	raw, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		SavedAt: s.clock(),
		Records: recs,
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data, err := s.codec.Encode(raw)
	if err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := s.bucket.Write(ctx, s.Key(), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	s.logger.Debug("snapshot written",
		zap.String("key", s.Key()),
		zap.Int("records", len(recs)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func (s *Store) decode(data []byte) ([]record.Cocktail, error) {
	raw, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, snap.Version)
	}
	if err := store.Validate(snap.Records); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap.Records, nil
}
