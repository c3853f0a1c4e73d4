package resolver

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/remote/memremote"
)

func TestResolve_DirectHitIsTrusted(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("Margarita",
		remote.Drink{Name: "Blue Margarita", ImageRef: "blue.jpg"},
		remote.Drink{Name: "Margarita", ImageRef: "margarita.jpg"},
	)
	rem.SetNameResults("margarita", remote.Drink{Name: "Margarita", ImageRef: "better.jpg"})
	r := New(rem)

	ref, ok := r.Resolve(context.Background(), "Margarita")
	if !ok || ref != "blue.jpg" {
		t.Errorf("Resolve() = %q, %v; want blue.jpg, true", ref, ok)
	}
	calls := rem.Calls()
	if calls.SearchByName != 1 || calls.SearchByFirstLetter != 0 {
		t.Errorf("calls = %+v, want one name search only", calls)
	}
}

func TestResolve_VariantQueries(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("margarita", remote.Drink{Name: "Margarita", ImageRef: "margarita.jpg"})
	r := New(rem)

	ref, ok := r.Resolve(context.Background(), "Classic Margarita Cocktail")
	if !ok || ref != "margarita.jpg" {
		t.Fatalf("Resolve() = %q, %v; want margarita.jpg, true", ref, ok)
	}

	want := []string{"Classic Margarita Cocktail", "classic margarita", "classic", "margarita"}
	if got := rem.NameQueries(); !reflect.DeepEqual(got, want) {
		t.Errorf("name queries = %q, want %q", got, want)
	}
	if got := rem.Calls().SearchByFirstLetter; got != 0 {
		t.Errorf("letter searches = %d, want 0", got)
	}
}

func TestResolve_VariantPicksClosest(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("margarita",
		remote.Drink{Name: "Blue Margarita", ImageRef: "blue.jpg"},
		remote.Drink{Name: "Margarita", ImageRef: "margarita.jpg"},
		remote.Drink{Name: "Margarita (classic)", ImageRef: "classic.jpg"},
	)
	r := New(rem)

	ref, ok := r.Resolve(context.Background(), "Margarita (Frozen)")
	if !ok || ref != "margarita.jpg" {
		t.Errorf("Resolve() = %q, %v; want margarita.jpg, true", ref, ok)
	}
}

func TestResolve_LetterThreshold(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantOK    bool
	}{
		{name: "within threshold", candidate: "Margaritaxyz", wantOK: true},
		{name: "beyond threshold", candidate: "Margaritawxyz", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rem := memremote.New()
			rem.SetLetterResults("m",
				remote.Drink{Name: "(!!)", ImageRef: "blank.jpg"},
				remote.Drink{Name: tt.candidate, ImageRef: "fuzzy.jpg"},
			)
			r := New(rem)

			ref, ok := r.Resolve(context.Background(), "margarita")
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ref != "fuzzy.jpg" {
				t.Errorf("Resolve() = %q, want fuzzy.jpg", ref)
			}
		})
	}
}

func TestResolve_Memoized(t *testing.T) {
	rem := memremote.New()
	r := New(rem)
	ctx := context.Background()

	if _, ok := r.Resolve(ctx, "Unknown Drink"); ok {
		t.Fatal("Resolve() found an image for an unknown drink")
	}
	first := rem.Calls()
	if first.Searches() == 0 {
		t.Fatal("first Resolve() made no remote calls")
	}

	// A later hit upstream does not change the memoized miss.
	rem.SetNameResults("Unknown Drink", remote.Drink{Name: "Unknown Drink", ImageRef: "late.jpg"})
	if _, ok := r.Resolve(ctx, "  unknown DRINK "); ok {
		t.Error("Resolve() did not reuse the memoized miss")
	}
	if got := rem.Calls(); got != first {
		t.Errorf("calls after memo hit = %+v, want %+v", got, first)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestResolve_RemoteErrorIsMemoizedMiss(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("Negroni", remote.Drink{Name: "Negroni", ImageRef: "negroni.jpg"})
	rem.SetSearchError(errors.New("boom"))
	r := New(rem)
	ctx := context.Background()

	if _, ok := r.Resolve(ctx, "Negroni"); ok {
		t.Fatal("Resolve() found an image while the remote fails")
	}

	rem.SetSearchError(nil)
	if _, ok := r.Resolve(ctx, "Negroni"); ok {
		t.Error("Resolve() retried a memoized failure")
	}
	if got := rem.Calls().SearchByName; got != 1 {
		t.Errorf("name searches = %d, want 1", got)
	}
}

func TestResolve_CancelledIsNotMemoized(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("Negroni", remote.Drink{Name: "Negroni", ImageRef: "negroni.jpg"})
	r := New(rem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := r.Resolve(ctx, "Negroni"); ok {
		t.Fatal("Resolve() succeeded with a cancelled context")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after cancellation, want 0", r.Len())
	}

	ref, ok := r.Resolve(context.Background(), "Negroni")
	if !ok || ref != "negroni.jpg" {
		t.Errorf("Resolve() = %q, %v; want negroni.jpg, true", ref, ok)
	}
}

// stallingSearcher blocks its first name search until the caller's context
// ends; later searches find a Margarita.
type stallingSearcher struct {
	started chan struct{}
	calls   atomic.Int64
}

func (s *stallingSearcher) SearchByName(ctx context.Context, name string) ([]remote.Drink, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []remote.Drink{{Name: "Margarita", ImageRef: "img.jpg"}}, nil
}

func (s *stallingSearcher) SearchByFirstLetter(context.Context, string) ([]remote.Drink, error) {
	return nil, nil
}

func TestResolve_CancelledCallerDoesNotFailOthers(t *testing.T) {
	searcher := &stallingSearcher{started: make(chan struct{})}
	r := New(searcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancelledDone := make(chan bool)
	go func() {
		_, ok := r.Resolve(ctx, "Margarita")
		cancelledDone <- ok
	}()
	<-searcher.started

	type result struct {
		ref string
		ok  bool
	}
	liveDone := make(chan result)
	go func() {
		ref, ok := r.Resolve(context.Background(), "Margarita")
		liveDone <- result{ref, ok}
	}()

	// Give the live caller time to join the stalled lookup.
	time.Sleep(20 * time.Millisecond)
	cancel()

	if ok := <-cancelledDone; ok {
		t.Error("Resolve() with a cancelled context found an image")
	}
	live := <-liveDone
	if !live.ok || live.ref != "img.jpg" {
		t.Errorf("Resolve() with a live context = %q, %v; want img.jpg, true", live.ref, live.ok)
	}

	ref, ok := r.Resolve(context.Background(), "Margarita")
	if !ok || ref != "img.jpg" {
		t.Errorf("memoized Resolve() = %q, %v; want img.jpg, true", ref, ok)
	}
}

func TestResolve_BlankName(t *testing.T) {
	rem := memremote.New()
	r := New(rem)

	if _, ok := r.Resolve(context.Background(), "   "); ok {
		t.Error("Resolve() found an image for a blank name")
	}
	if got := rem.Calls().Searches(); got != 0 {
		t.Errorf("searches = %d, want 0", got)
	}
}

func TestResolve_ConcurrentSameName(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("Mojito", remote.Drink{Name: "Mojito", ImageRef: "mojito.jpg"})
	r := New(rem)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ref, ok := r.Resolve(context.Background(), "Mojito"); !ok || ref != "mojito.jpg" {
				t.Errorf("Resolve() = %q, %v; want mojito.jpg, true", ref, ok)
			}
		}()
	}
	wg.Wait()

	if got := rem.Calls().SearchByName; got != 1 {
		t.Errorf("name searches = %d, want 1", got)
	}
}

func TestEnrichMany(t *testing.T) {
	rem := memremote.New()
	rem.SetNameResults("Mojito", remote.Drink{Name: "Mojito", ImageRef: "mojito.jpg"})
	rem.SetNameResults("Negroni", remote.Drink{Name: "Negroni", ImageRef: "negroni.jpg"})

	in := []record.Cocktail{
		{ID: "1", Name: "Mojito"},
		{ID: "2", Name: "Mystery", ImageRef: "kept.jpg"},
		{ID: "3", Name: "Negroni", ImageRef: "old.jpg"},
		{ID: "4", Name: "Mojito"},
	}

	for _, limit := range []int{0, 1} {
		r := New(rem, WithConcurrency(limit))
		got, err := r.EnrichMany(context.Background(), in)
		if err != nil {
			t.Fatalf("EnrichMany() error = %v", err)
		}

		want := []string{"mojito.jpg", "kept.jpg", "negroni.jpg", "mojito.jpg"}
		if len(got) != len(want) {
			t.Fatalf("EnrichMany() returned %d records, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != in[i].ID {
				t.Errorf("record %d ID = %q, want %q", i, got[i].ID, in[i].ID)
			}
			if got[i].ImageRef != want[i] {
				t.Errorf("record %d ImageRef = %q, want %q", i, got[i].ImageRef, want[i])
			}
		}
	}

	if in[2].ImageRef != "old.jpg" {
		t.Error("EnrichMany() modified its input")
	}
}

func TestEnrichMany_Cancelled(t *testing.T) {
	rem := memremote.New()
	r := New(rem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.EnrichMany(ctx, []record.Cocktail{{ID: "1", Name: "Mojito"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("EnrichMany() error = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("EnrichMany() = %v, want nil", got)
	}
}

func TestEnrichMany_Empty(t *testing.T) {
	r := New(memremote.New())

	got, err := r.EnrichMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("EnrichMany() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("EnrichMany() returned %d records, want 0", len(got))
	}
}
