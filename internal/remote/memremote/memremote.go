// Package memremote provides in-memory remote capabilities for testing.
package memremote

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/discochess/barback/internal/remote"
)

// Compile-time checks that Remote implements the remote interfaces.
var (
	_ remote.ImageSearcher = (*Remote)(nil)
	_ remote.Catalog       = (*Remote)(nil)
)

// Remote is an in-memory ImageSearcher and Catalog. Name queries are answered
// from explicit per-query results set with SetNameResults; letter queries from
// SetLetterResults. Calls are counted for assertions.
type Remote struct {
	mu           sync.RWMutex
	byName       map[string][]remote.Drink
	byLetter     map[string][]remote.Drink
	catalog      []remote.CatalogEntry
	byIngredient map[string][]remote.CatalogEntry
	searchErr    error
	catalogErr   error

	nameCalls   atomic.Int64
	letterCalls atomic.Int64
	listCalls   atomic.Int64
	filterCalls atomic.Int64
	nameQueries []string
	queriesMu   sync.Mutex
}

// New creates an empty Remote.
func New() *Remote {
	return &Remote{
		byName:       make(map[string][]remote.Drink),
		byLetter:     make(map[string][]remote.Drink),
		byIngredient: make(map[string][]remote.CatalogEntry),
	}
}

// SetNameResults sets the drinks returned for an exact name query.
func (r *Remote) SetNameResults(query string, drinks ...remote.Drink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[query] = append([]remote.Drink(nil), drinks...)
}

// SetLetterResults sets the drinks returned for a first-letter query.
func (r *Remote) SetLetterResults(letter string, drinks ...remote.Drink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLetter[strings.ToLower(letter)] = append([]remote.Drink(nil), drinks...)
}

// SetCatalog sets the entries returned by ListCocktails.
func (r *Remote) SetCatalog(entries ...remote.CatalogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = append([]remote.CatalogEntry(nil), entries...)
}

// SetIngredientResults sets the entries returned for an ingredient filter.
func (r *Remote) SetIngredientResults(ingredient string, entries ...remote.CatalogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIngredient[strings.ToLower(ingredient)] = append([]remote.CatalogEntry(nil), entries...)
}

// SetSearchError makes both search methods fail with err. Nil clears it.
func (r *Remote) SetSearchError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchErr = err
}

// SetCatalogError makes both catalog methods fail with err. Nil clears it.
func (r *Remote) SetCatalogError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogErr = err
}

// SearchByName returns the drinks registered for name.
func (r *Remote) SearchByName(ctx context.Context, name string) ([]remote.Drink, error) {
	r.nameCalls.Add(1)
	r.queriesMu.Lock()
	r.nameQueries = append(r.nameQueries, name)
	r.queriesMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return append([]remote.Drink(nil), r.byName[name]...), nil
}

// SearchByFirstLetter returns the drinks registered for letter.
func (r *Remote) SearchByFirstLetter(ctx context.Context, letter string) ([]remote.Drink, error) {
	r.letterCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return append([]remote.Drink(nil), r.byLetter[strings.ToLower(letter)]...), nil
}

// ListCocktails returns up to limit catalog entries.
func (r *Remote) ListCocktails(ctx context.Context, limit int) ([]remote.CatalogEntry, error) {
	r.listCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.catalogErr != nil {
		return nil, r.catalogErr
	}
	n := min(limit, len(r.catalog))
	return append([]remote.CatalogEntry(nil), r.catalog[:n]...), nil
}

// FilterByIngredient returns the entries registered for ingredient.
func (r *Remote) FilterByIngredient(ctx context.Context, ingredient string) ([]remote.CatalogEntry, error) {
	r.filterCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.catalogErr != nil {
		return nil, r.catalogErr
	}
	return append([]remote.CatalogEntry(nil), r.byIngredient[strings.ToLower(ingredient)]...), nil
}

// Calls reports how many times each method was called.
type Calls struct {
	SearchByName        int64
	SearchByFirstLetter int64
	ListCocktails       int64
	FilterByIngredient  int64
}

// Searches returns the total number of search calls.
func (c Calls) Searches() int64 {
	return c.SearchByName + c.SearchByFirstLetter
}

// Calls returns the call counters.
func (r *Remote) Calls() Calls {
	return Calls{
		SearchByName:        r.nameCalls.Load(),
		SearchByFirstLetter: r.letterCalls.Load(),
		ListCocktails:       r.listCalls.Load(),
		FilterByIngredient:  r.filterCalls.Load(),
	}
}

// NameQueries returns the SearchByName arguments in call order.
func (r *Remote) NameQueries() []string {
	r.queriesMu.Lock()
	defer r.queriesMu.Unlock()
	return append([]string(nil), r.nameQueries...)
}
