// Package storetest provides a conformance suite for store.Store backends.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
)

// Epoch is the initial time of a Clock.
var Epoch = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory creates an empty store reading time from clock.
type Factory func(t *testing.T, clock store.Clock) store.Store

// Run runs the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store, clock *Clock)
	}{
		{"UpsertAndGet", testUpsertAndGet},
		{"UpsertReplaces", testUpsertReplaces},
		{"UpsertIsAtomic", testUpsertIsAtomic},
		{"GetAllOrder", testGetAllOrder},
		{"SearchByText", testSearchByText},
		{"GetByCategory", testGetByCategory},
		{"GetByMinRating", testGetByMinRating},
		{"TouchAccess", testTouchAccess},
		{"OldestFetchedAt", testOldestFetchedAt},
		{"TrimToRecent", testTrimToRecent},
		{"Clear", testClear},
		{"ReturnsCopies", testReturnsCopies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewClock()
			s := newStore(t, clock.Now)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s, clock)
		})
	}
}

// Cocktail returns a minimal valid record.
func Cocktail(id, name string) record.Cocktail {
	return record.Cocktail{
		ID:       id,
		Name:     name,
		Category: record.DefaultCategory,
		Rating:   4.0,
	}
}

func mustUpsert(t *testing.T, s store.Store, recs ...record.Cocktail) {
	t.Helper()
	if err := s.UpsertAll(context.Background(), recs); err != nil {
		t.Fatalf("UpsertAll() error = %v", err)
	}
}

func ids(recs []record.Cocktail) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(t *testing.T, op string, got []record.Cocktail, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("%s = %q, want %q", op, g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("%s = %q, want %q", op, g, want)
		}
	}
}

func testUpsertAndGet(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	rec := Cocktail("11007", "Margarita")
	rec.Ingredients = []string{"1 1/2 oz Tequila", "1/2 oz Triple sec"}
	rec.FetchedAt = Epoch.Add(-72 * time.Hour)
	mustUpsert(t, s, rec)

	got, ok, err := s.GetByID(ctx, "11007")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !ok {
		t.Fatal("GetByID() found = false, want true")
	}
	if got.Name != "Margarita" || len(got.Ingredients) != 2 {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.FetchedAt.Equal(clock.Now()) || !got.LastAccessedAt.Equal(clock.Now()) {
		t.Errorf("timestamps = %v, %v; want both %v", got.FetchedAt, got.LastAccessedAt, clock.Now())
	}

	if _, ok, err := s.GetByID(ctx, "missing"); err != nil || ok {
		t.Errorf("GetByID(missing) = %v, %v; want false, nil", ok, err)
	}
	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1, nil", n, err)
	}
}

func testUpsertReplaces(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	mustUpsert(t, s, Cocktail("1", "Mojito"))
	clock.Advance(time.Hour)

	updated := Cocktail("1", "Mojito")
	updated.ImageRef = "mojito.jpg"
	mustUpsert(t, s, updated)

	got, _, err := s.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ImageRef != "mojito.jpg" {
		t.Errorf("ImageRef = %q, want mojito.jpg", got.ImageRef)
	}
	if !got.FetchedAt.Equal(clock.Now()) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, clock.Now())
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func testUpsertIsAtomic(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	mustUpsert(t, s, Cocktail("0", "Existing"))

	err := s.UpsertAll(ctx, []record.Cocktail{
		Cocktail("1", "Mojito"),
		Cocktail("", "No ID"),
		Cocktail("2", "Negroni"),
	})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("UpsertAll() error = %v, want ErrInvalidRecord", err)
	}

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d after failed batch, want 1", n)
	}
	if _, ok, _ := s.GetByID(ctx, "1"); ok {
		t.Error("record before the invalid one was written")
	}
}

func testGetAllOrder(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	mustUpsert(t, s, Cocktail("b", "B"), Cocktail("a", "A"))
	clock.Advance(time.Minute)
	mustUpsert(t, s, Cocktail("c", "C"))

	got, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	equalIDs(t, "GetAll()", got, "c", "a", "b")

	if err := s.TouchAccess(ctx, "b", clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("TouchAccess() error = %v", err)
	}
	got, _ = s.GetAll(ctx)
	equalIDs(t, "GetAll() after touch", got, "b", "c", "a")
}

func testSearchByText(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	margarita := Cocktail("1", "Margarita")
	margarita.Ingredients = []string{"Tequila", "Lime juice"}
	daiquiri := Cocktail("2", "Daiquiri")
	daiquiri.Ingredients = []string{"Light rum", "LIME juice"}
	negroni := Cocktail("3", "Negroni")
	negroni.Ingredients = []string{"Gin", "Campari"}
	mustUpsert(t, s, margarita, daiquiri, negroni)

	tests := []struct {
		query string
		want  []string
	}{
		{"marg", []string{"1"}},
		{"lime", []string{"1", "2"}},
		{"CAMPARI", []string{"3"}},
		{"whisky", nil},
	}
	for _, tt := range tests {
		got, err := s.SearchByText(ctx, tt.query)
		if err != nil {
			t.Fatalf("SearchByText(%q) error = %v", tt.query, err)
		}
		equalIDs(t, "SearchByText("+tt.query+")", got, tt.want...)
	}
}

func testGetByCategory(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	a := Cocktail("a", "A")
	a.Category, a.Rating = "Gin", 3.5
	b := Cocktail("b", "B")
	b.Category, b.Rating = "gin", 4.5
	c := Cocktail("c", "C")
	c.Category, c.Rating = "Rum", 5.0
	mustUpsert(t, s, a, b, c)

	got, err := s.GetByCategory(ctx, "GIN")
	if err != nil {
		t.Fatalf("GetByCategory() error = %v", err)
	}
	equalIDs(t, "GetByCategory(GIN)", got, "b", "a")
}

func testGetByMinRating(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	var recs []record.Cocktail
	for id, rating := range map[string]float64{"a": 3.0, "b": 4.2, "c": 4.8, "d": 4.2} {
		r := Cocktail(id, id)
		r.Rating = rating
		recs = append(recs, r)
	}
	mustUpsert(t, s, recs...)

	got, err := s.GetByMinRating(ctx, 4.2)
	if err != nil {
		t.Fatalf("GetByMinRating() error = %v", err)
	}
	equalIDs(t, "GetByMinRating(4.2)", got, "c", "b", "d")
}

func testTouchAccess(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	rec := Cocktail("1", "Mojito")
	rec.ImageRef = "mojito.jpg"
	mustUpsert(t, s, rec)

	at := clock.Now().Add(3 * time.Hour)
	if err := s.TouchAccess(ctx, "1", at); err != nil {
		t.Fatalf("TouchAccess() error = %v", err)
	}
	got, _, _ := s.GetByID(ctx, "1")
	if !got.LastAccessedAt.Equal(at) {
		t.Errorf("LastAccessedAt = %v, want %v", got.LastAccessedAt, at)
	}
	if !got.FetchedAt.Equal(clock.Now()) || got.ImageRef != "mojito.jpg" {
		t.Errorf("TouchAccess() changed other fields: %+v", got)
	}

	if err := s.TouchAccess(ctx, "missing", at); err != nil {
		t.Errorf("TouchAccess(missing) error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func testOldestFetchedAt(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	if _, ok, err := s.OldestFetchedAt(ctx); err != nil || ok {
		t.Fatalf("OldestFetchedAt() on empty = %v, %v; want false, nil", ok, err)
	}

	mustUpsert(t, s, Cocktail("1", "Old"))
	first := clock.Now()
	clock.Advance(2 * time.Hour)
	mustUpsert(t, s, Cocktail("2", "New"))

	got, ok, err := s.OldestFetchedAt(ctx)
	if err != nil || !ok {
		t.Fatalf("OldestFetchedAt() = %v, %v", ok, err)
	}
	if !got.Equal(first) {
		t.Errorf("OldestFetchedAt() = %v, want %v", got, first)
	}
}

func testTrimToRecent(t *testing.T, s store.Store, clock *Clock) {
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		mustUpsert(t, s, Cocktail(id, "Drink "+id))
		clock.Advance(time.Minute)
	}
	// Reading "1" makes it the most recent.
	if err := s.TouchAccess(ctx, "1", clock.Now()); err != nil {
		t.Fatalf("TouchAccess() error = %v", err)
	}

	n, err := s.TrimToRecent(ctx, 3)
	if err != nil {
		t.Fatalf("TrimToRecent() error = %v", err)
	}
	if n != 2 {
		t.Errorf("TrimToRecent() = %d, want 2", n)
	}
	got, _ := s.GetAll(ctx)
	equalIDs(t, "GetAll() after trim", got, "1", "5", "4")

	if n, err := s.TrimToRecent(ctx, 10); err != nil || n != 0 {
		t.Errorf("TrimToRecent(10) = %d, %v; want 0, nil", n, err)
	}
}

func testClear(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	mustUpsert(t, s, Cocktail("1", "A"), Cocktail("2", "B"))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after Clear, want 0", n)
	}
	if _, ok, _ := s.OldestFetchedAt(ctx); ok {
		t.Error("OldestFetchedAt() found a time after Clear")
	}
}

func testReturnsCopies(t *testing.T, s store.Store, _ *Clock) {
	ctx := context.Background()
	rec := Cocktail("1", "Mojito")
	rec.Ingredients = []string{"Rum", "Mint"}
	mustUpsert(t, s, rec)
	rec.Ingredients[0] = "changed"

	got, _, _ := s.GetByID(ctx, "1")
	got.Ingredients[1] = "changed"

	again, _, _ := s.GetByID(ctx, "1")
	if again.Ingredients[0] != "Rum" || again.Ingredients[1] != "Mint" {
		t.Errorf("Ingredients = %q, want unchanged", again.Ingredients)
	}
}
