package phrases

import (
	"context"
	"sync"
	"testing"

	"github.com/smith3v/tg-phrasebook/pkg/db"
)

func TestLiveSearchDropsStaleResults(t *testing.T) {
	release := make(map[string]chan struct{})
	for _, q := range []string{"ho", "hol"} {
		release[q] = make(chan struct{})
	}

	search := func(ctx context.Context, query string) []db.TranslationPair {
		<-release[query]
		return []db.TranslationPair{{Source: query}}
	}

	var mu sync.Mutex
	var delivered []string
	live := NewLiveSearchWith(search, func(query string, pairs []db.TranslationPair) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, query)
	})

	live.Query(context.Background(), "ho")
	live.Query(context.Background(), "hol")

	// The newer query completes first, then the stale one.
	close(release["hol"])
	close(release["ho"])
	live.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "hol" {
		t.Fatalf("expected only the latest query to be delivered, got %v", delivered)
	}
}

func TestLiveSearchCancelsPreviousContext(t *testing.T) {
	started := make(chan context.Context, 1)
	search := func(ctx context.Context, query string) []db.TranslationPair {
		if query == "first" {
			started <- ctx
			<-ctx.Done()
		}
		return nil
	}

	var got []string
	live := NewLiveSearchWith(search, func(query string, _ []db.TranslationPair) {
		got = append(got, query)
	})

	live.Query(context.Background(), "first")
	firstCtx := <-started
	live.Query(context.Background(), "second")
	live.Wait()

	if firstCtx.Err() == nil {
		t.Fatal("expected the first query's context to be cancelled")
	}
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the second query, got %v", got)
	}
}

func TestLiveSearchStopDropsInFlight(t *testing.T) {
	release := make(chan struct{})
	search := func(ctx context.Context, query string) []db.TranslationPair {
		<-release
		return nil
	}
	called := false
	live := NewLiveSearchWith(search, func(string, []db.TranslationPair) { called = true })

	live.Query(context.Background(), "x")
	live.Stop()
	close(release)
	live.Wait()

	if called {
		t.Fatal("expected stopped query not to deliver")
	}
}
