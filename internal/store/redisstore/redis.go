// Package redisstore implements a store on Redis, for deployments where several
// processes share one cache.
//
// Each record is a JSON string at {<prefix>}:rec:<id>. Two sorted sets index
// the ids by access time and fetch time in unix milliseconds. Every write
// updates the records and both indexes in one MULTI/EXEC transaction.
//
// The prefix is a hash tag, so a store's keys share one Redis Cluster slot and
// multi-key commands and transactions work against a cluster as well as a
// single node.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// DefaultPrefix namespaces all keys written by the store.
const DefaultPrefix = "barback:"

// testHookTrimScanned runs after TrimToRecent has read the records it may evict.
var testHookTrimScanned = func() {}

// Store is a Redis-backed store.
type Store struct {
	client redis.UniversalClient
	prefix string // hash-tagged, see keyPrefix
	clock  store.Clock
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. A trailing ':' is optional.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
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

// New creates a store on client. The store takes ownership of client and
// closes it on Close.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prefix = keyPrefix(s.prefix)
	return s
}

// keyPrefix wraps prefix in a hash tag: "barback:" becomes "{barback}:".
// An empty tag would not pin the slot, so it falls back to the default.
func keyPrefix(prefix string) string {
	name := strings.TrimRight(prefix, ":")
	if name == "" {
		name = strings.TrimRight(DefaultPrefix, ":")
	}
	return "{" + name + "}:"
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// UpsertAll writes recs atomically, stamping both timestamps.
func (s *Store) UpsertAll(ctx context.Context, recs []record.Cocktail) error {
	if err := store.Validate(recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	stamped := store.Stamp(recs, s.clock())
	values := make([][]byte, len(stamped))
	for i, r := range stamped {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", r.ID, err)
		}
		values[i] = data
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, r := range stamped {
			s.write(ctx, p, r, values[i])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting %d records: %w", len(recs), err)
	}
	return nil
}

// GetAll returns every record, most recently accessed first.
func (s *Store) GetAll(ctx context.Context) ([]record.Cocktail, error) {
	ids, err := s.client.ZRevRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	recs, err := s.load(ctx, s.client, ids)
	if err != nil {
		return nil, err
	}
	store.SortByAccess(recs)
	return recs, nil
}

// GetByID returns the record with id.
func (s *Store) GetByID(ctx context.Context, id string) (record.Cocktail, bool, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return record.Cocktail{}, false, nil
	}
	if err != nil {
		return record.Cocktail{}, false, fmt.Errorf("getting %s: %w", id, err)
	}
	r, err := decode(data)
	if err != nil {
		return record.Cocktail{}, false, err
	}
	return r, true, nil
}

// SearchByText returns records whose name or ingredients contain query.
func (s *Store) SearchByText(ctx context.Context, query string) ([]record.Cocktail, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return store.Filter(all, func(r record.Cocktail) bool {
		return store.MatchesText(r, query)
	}), nil
}

// GetByCategory returns records in category, best rated first.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]record.Cocktail, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := store.Filter(all, func(r record.Cocktail) bool {
		return store.SameCategory(r.Category, category)
	})
	store.SortByRating(out)
	return out, nil
}

// GetByMinRating returns records rated at least min, best rated first.
func (s *Store) GetByMinRating(ctx context.Context, min float64) ([]record.Cocktail, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := store.Filter(all, func(r record.Cocktail) bool {
		return r.Rating >= min
	})
	store.SortByRating(out)
	return out, nil
}

// TouchAccess sets LastAccessedAt of id. A concurrent write to the same
// record retries the touch.
func (s *Store) TouchAccess(ctx context.Context, id string, at time.Time) error {
	key := s.recordKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		r, err := decode(data)
		if err != nil {
			return err
		}
		r.LastAccessedAt = at
		value, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.write(ctx, p, r, value)
			return nil
		})
		return err
	}

	for range 3 {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("touching %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("touching %s: %w", id, redis.TxFailedErr)
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.accessKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return int(n), nil
}

// OldestFetchedAt returns the earliest FetchedAt.
func (s *Store) OldestFetchedAt(ctx context.Context) (time.Time, bool, error) {
	ids, err := s.client.ZRange(ctx, s.fetchedKey(), 0, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("finding oldest: %w", err)
	}
	if len(ids) == 0 {
		return time.Time{}, false, nil
	}
	r, ok, err := s.GetByID(ctx, ids[0])
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return r.FetchedAt, true, nil
}

// TrimToRecent keeps the limit most recently accessed records. The access
// index is watched while the eviction set is chosen, so a concurrent write or
// touch restarts the trim rather than losing a record it just refreshed.
func (s *Store) TrimToRecent(ctx context.Context, limit int) (int, error) {
	var evicted int
	txf := func(tx *redis.Tx) error {
		evicted = 0
		ids, err := tx.ZRange(ctx, s.accessKey(), 0, -1).Result()
		if err != nil {
			return err
		}
		if len(ids) <= max(limit, 0) {
			return nil
		}
		all, err := s.load(ctx, tx, ids)
		if err != nil {
			return err
		}
		testHookTrimScanned()
		store.SortByAccess(all)
		_, evict := store.Partition(all, limit)
		if len(evict) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.remove(ctx, p, evict)
			return nil
		})
		if err != nil {
			return err
		}
		evicted = len(evict)
		return nil
	}

	for range 3 {
		err := s.client.Watch(ctx, txf, s.accessKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("trimming to %d records: %w", limit, err)
		}
		if evicted > 0 {
			s.logger.Debug("trimmed records", zap.Int("count", evicted))
		}
		return evicted, nil
	}
	return 0, fmt.Errorf("trimming to %d records: %w", limit, redis.TxFailedErr)
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("listing ids: %w", err)
	}
	keys := make([]string, 0, len(ids)+2)
	for _, id := range ids {
		keys = append(keys, s.recordKey(id))
	}
	keys = append(keys, s.accessKey(), s.fetchedKey())

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) write(ctx context.Context, p redis.Pipeliner, r record.Cocktail, value []byte) {
	p.Set(ctx, s.recordKey(r.ID), value, 0)
	p.ZAdd(ctx, s.accessKey(), redis.Z{Score: score(r.LastAccessedAt), Member: r.ID})
	p.ZAdd(ctx, s.fetchedKey(), redis.Z{Score: score(r.FetchedAt), Member: r.ID})
}

func (s *Store) remove(ctx context.Context, p redis.Pipeliner, recs []record.Cocktail) {
	keys := make([]string, len(recs))
	members := make([]any, len(recs))
	for i, r := range recs {
		keys[i] = s.recordKey(r.ID)
		members[i] = r.ID
	}
	p.Del(ctx, keys...)
	p.ZRem(ctx, s.accessKey(), members...)
	p.ZRem(ctx, s.fetchedKey(), members...)
}

func (s *Store) load(ctx context.Context, c redis.StringCmdable, ids []string) ([]record.Cocktail, error) {
	if len(ids) == 0 {
		return []record.Cocktail{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	out := make([]record.Cocktail, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Removed between the index read and the load.
			s.logger.Debug("indexed record missing", zap.String("id", ids[i]))
			continue
		}
		r, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) recordKey(id string) string { return s.prefix + "rec:" + id }
func (s *Store) accessKey() string          { return s.prefix + "access" }
func (s *Store) fetchedKey() string         { return s.prefix + "fetched" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func decode(data []byte) (record.Cocktail, error) {
	var r record.Cocktail
	if err := json.Unmarshal(data, &r); err != nil {
		return record.Cocktail{}, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}
