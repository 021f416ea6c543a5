package phrases

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/smith3v/tg-phrasebook/pkg/db"
)

type SearchFunc func(ctx context.Context, query string) []db.TranslationPair

type ResultFunc func(query string, pairs []db.TranslationPair)

// LiveSearch runs search-as-you-type queries. Starting a query cancels the
// one before it, and a result is delivered only if no newer query has been
// started in the meantime.
type LiveSearch struct {
	mu         sync.Mutex
	cancel     context.CancelFunc
	generation atomic.Uint64
	deliver    sync.Mutex
	wg         sync.WaitGroup
	search     SearchFunc
	onResult   ResultFunc
}

func NewLiveSearch(onResult ResultFunc) *LiveSearch {
	return NewLiveSearchWith(Search, onResult)
}

func NewLiveSearchWith(search SearchFunc, onResult ResultFunc) *LiveSearch {
	if search == nil {
		search = Search
	}
	return &LiveSearch{search: search, onResult: onResult}
}

func (l *LiveSearch) Query(parent context.Context, query string) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	gen := l.generation.Add(1)
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer cancel()
		pairs := l.search(ctx, query)

		l.deliver.Lock()
		defer l.deliver.Unlock()
		if ctx.Err() != nil || l.generation.Load() != gen {
			return
		}
		if l.onResult != nil {
			l.onResult(query, pairs)
		}
	}()
}

// Stop cancels the in-flight query, if any. Its result is dropped.
func (l *LiveSearch) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation.Add(1)
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Wait blocks until every started query has finished or been dropped.
func (l *LiveSearch) Wait() {
	l.wg.Wait()
}
