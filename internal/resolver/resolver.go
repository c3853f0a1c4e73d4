// Package resolver maps cocktail display names to image references.
//
// Resolution escalates through three stages and stops at the first one that
// yields an image:
//
//  1. A direct name search; the first hit is trusted as is.
//  2. Name searches for simplified variants of the normalized name.
//  3. A first-letter scan, accepted only within an edit-distance threshold.
//
// Every outcome, including "no image", is memoized for the life of the
// Resolver. Remote failures are logged and reported as no image; they never
// reach the caller.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/discochess/barback/internal/match"
	"github.com/discochess/barback/internal/normalize"
	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/stats"
)

// noMatch is the memoized value for a name without an image.
const noMatch = ""

// Resolver resolves names to image references. It is safe for concurrent use.
type Resolver struct {
	searcher    remote.ImageSearcher
	stats       stats.Collector
	logger      *zap.Logger
	concurrency int

	mu   sync.RWMutex
	memo map[string]string

	flight singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStats sets the metrics collector.
func WithStats(c stats.Collector) Option {
	return func(r *Resolver) {
		r.stats = stats.OrNoop(c)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConcurrency bounds the number of resolutions EnrichMany runs at once.
// Zero or less means unbounded.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// New creates a Resolver backed by searcher.
func New(searcher remote.ImageSearcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher: searcher,
		stats:    stats.NewNoop(),
		logger:   zap.NewNop(),
		memo:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the image reference for rawName, or false if none was found.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (string, bool) {
	r.stats.IncCounter(stats.MetricImageLookups, 1)

	key := memoKey(rawName)
	if ref, ok := r.lookup(key); ok {
		r.stats.IncCounter(stats.MetricImageMemoHits, 1)
		return ref, ref != noMatch
	}

	for {
		v, err, _ := r.flight.Do(key, func() (any, error) {
			// Another flight may have finished between the lookup and here.
			if ref, ok := r.lookup(key); ok {
				return ref, nil
			}
			return r.resolveAndStore(ctx, key, rawName)
		})
		if err == nil {
			ref := v.(string)
			return ref, ref != noMatch
		}
		if ctx.Err() != nil {
			return noMatch, false
		}
		// The flight was owned by a caller that gave up; run our own.
	}
}

// resolveAndStore resolves rawName and memoizes the outcome. It returns the
// context's error, memoizing nothing, when ctx ends first.
func (r *Resolver) resolveAndStore(ctx context.Context, key, rawName string) (string, error) {
	ref, err := r.resolve(ctx, rawName)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return noMatch, ctxErr
		}
		r.stats.IncCounter(stats.MetricImageErrors, 1)
		r.logger.Warn("image resolution failed",
			zap.String("name", rawName),
			zap.Error(err),
		)
		ref = noMatch
	}

	if ref == noMatch {
		r.stats.IncCounter(stats.MetricImageMisses, 1)
	} else {
		r.stats.IncCounter(stats.MetricImageMatches, 1)
	}
	r.store(key, ref)
	return ref, nil
}

// EnrichMany resolves the image of every record concurrently and returns
// copies in input order. A record's ImageRef is replaced only when an image was
// found. The only error is the context's, in which case no records are returned.
func (r *Resolver) EnrichMany(ctx context.Context, records []record.Cocktail) ([]record.Cocktail, error) {
	out := make([]record.Cocktail, len(records))

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, rec := range records {
		g.Go(func() error {
			enriched := rec.Clone()
			if ref, ok := r.Resolve(ctx, rec.Name); ok {
				enriched.ImageRef = ref
			}
			out[i] = enriched
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of memoized names.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memo)
}

func (r *Resolver) lookup(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.memo[key]
	return ref, ok
}

func (r *Resolver) store(key, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[key] = ref
}

// resolve runs the three stages. It returns noMatch with a nil error when every
// stage came up empty.
func (r *Resolver) resolve(ctx context.Context, rawName string) (string, error) {
	if strings.TrimSpace(rawName) == "" {
		return noMatch, nil
	}

	drinks, err := r.searcher.SearchByName(ctx, rawName)
	if err != nil {
		return noMatch, fmt.Errorf("searching %q: %w", rawName, err)
	}
	if len(drinks) > 0 {
		return drinks[0].ImageRef, nil
	}

	target := normalize.Name(rawName)

	ref, err := r.resolveVariants(ctx, target)
	if err != nil || ref != noMatch {
		return ref, err
	}

	return r.resolveByLetter(ctx, target)
}

func (r *Resolver) resolveVariants(ctx context.Context, target string) (string, error) {
	for _, variant := range normalize.Variants(target) {
		drinks, err := r.searcher.SearchByName(ctx, variant)
		if err != nil {
			return noMatch, fmt.Errorf("searching variant %q: %w", variant, err)
		}
		switch len(drinks) {
		case 0:
			continue
		case 1:
			return drinks[0].ImageRef, nil
		}
		best, ok := match.PickBest(target, candidates(drinks))
		if !ok {
			return noMatch, errors.New("no candidates among variant results")
		}
		return best.Key, nil
	}
	return noMatch, nil
}

func (r *Resolver) resolveByLetter(ctx context.Context, target string) (string, error) {
	if target == "" {
		return noMatch, nil
	}
	letter := target[:1]

	drinks, err := r.searcher.SearchByFirstLetter(ctx, letter)
	if err != nil {
		return noMatch, fmt.Errorf("searching letter %q: %w", letter, err)
	}

	var cands []match.Candidate
	for _, c := range candidates(drinks) {
		if normalize.Name(c.Name) != "" {
			cands = append(cands, c)
		}
	}

	best, ok := match.PickBest(target, cands)
	if !ok || best.Distance > match.Threshold(len(target)) {
		return noMatch, nil
	}
	r.logger.Debug("fuzzy image match",
		zap.String("target", target),
		zap.String("match", best.Name),
		zap.Int("distance", best.Distance),
	)
	return best.Key, nil
}

func candidates(drinks []remote.Drink) []match.Candidate {
	out := make([]match.Candidate, len(drinks))
	for i, d := range drinks {
		out[i] = match.Candidate{Key: d.ImageRef, Name: d.Name}
	}
	return out
}

func memoKey(rawName string) string {
	return strings.ToLower(strings.TrimSpace(rawName))
}
