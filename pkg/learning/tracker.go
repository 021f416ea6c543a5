package learning

import (
	"context"
	"strings"
	"sync"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
)

// Tracker keeps the progress of the selected category current. It recomputes
// when the category changes, after Refresh, and synchronously inside every
// category feed notification.
type Tracker struct {
	mu          sync.Mutex
	category    string
	progress    Progress
	unsubscribe func()
	onChange    func(category string, progress Progress)
	aggregate   func(ctx context.Context, category string) Progress
}

func NewTracker(feed *categories.Feed, onChange func(category string, progress Progress)) *Tracker {
	t := &Tracker{onChange: onChange, aggregate: Aggregate}
	t.unsubscribe = feed.Subscribe(func(categories.Change) {
		t.Refresh(context.Background())
	})
	return t
}

func (t *Tracker) SetCategory(ctx context.Context, category string) Progress {
	t.mu.Lock()
	t.category = strings.TrimSpace(category)
	t.mu.Unlock()
	return t.Refresh(ctx)
}

func (t *Tracker) Refresh(ctx context.Context) Progress {
	t.mu.Lock()
	category := t.category
	t.mu.Unlock()

	progress := t.aggregate(ctx, category)

	t.mu.Lock()
	if t.category != category {
		// A newer SetCategory ran meanwhile and will publish its own value.
		t.mu.Unlock()
		return progress
	}
	t.progress = progress
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(category, progress)
	}
	return progress
}

func (t *Tracker) Current() (string, Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.category, t.progress
}

func (t *Tracker) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}
