package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock store.Clock) store.Store {
		return New(WithClock(clock))
	})
}

func TestStore_Closed(t *testing.T) {
	s := New()
	s.Close()

	ctx := context.Background()
	if err := s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("1", "A")}); !errors.Is(err, store.ErrClosed) {
		t.Errorf("UpsertAll() error = %v, want ErrClosed", err)
	}
	if _, err := s.GetAll(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("GetAll() error = %v, want ErrClosed", err)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("1", "A")}); !errors.Is(err, context.Canceled) {
		t.Errorf("UpsertAll() error = %v, want context.Canceled", err)
	}
	if n, _ := s.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestStore_ApplyCommitFailure(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.UpsertAll(ctx, []record.Cocktail{storetest.Cocktail("1", "A")})

	errCommit := errors.New("commit failed")
	var committed []record.Cocktail
	err := s.Apply(ClearAll, func(recs []record.Cocktail) error {
		committed = recs
		return errCommit
	})
	if !errors.Is(err, errCommit) {
		t.Fatalf("Apply() error = %v, want %v", err, errCommit)
	}
	if len(committed) != 0 {
		t.Errorf("commit saw %d records, want 0", len(committed))
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d after failed commit, want 1", n)
	}
}

func TestStore_LoadKeepsTimestamps(t *testing.T) {
	rec := storetest.Cocktail("1", "A")
	rec.FetchedAt = storetest.Epoch
	rec.LastAccessedAt = storetest.Epoch

	s := New()
	s.Load([]record.Cocktail{rec})

	snap := s.Snapshot()
	if len(snap) != 1 || !snap[0].FetchedAt.Equal(storetest.Epoch) {
		t.Errorf("Snapshot() = %+v", snap)
	}
}
