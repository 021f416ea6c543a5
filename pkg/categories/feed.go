package categories

import "sync"

type ChangeKind string

const (
	ChangeTagsReplaced ChangeKind = "tags_replaced"
	ChangeRenamed      ChangeKind = "renamed"
	ChangeRemoved      ChangeKind = "removed"
	ChangeMerged       ChangeKind = "merged"
	ChangePairAdded    ChangeKind = "pair_added"
	ChangePairDeleted  ChangeKind = "pair_deleted"
	ChangeImported     ChangeKind = "imported"
)

// Change describes a committed mutation of the category to pair associations.
type Change struct {
	Kind       ChangeKind
	PairID     uint
	Categories []string
}

type Listener func(Change)

// Feed fans out committed tag-table changes to subscribers. Listeners run
// synchronously on the notifying goroutine, outside the feed lock, in
// subscription order.
type Feed struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

func NewFeed() *Feed {
	return &Feed{listeners: make(map[int]Listener)}
}

var DefaultFeed = NewFeed()

func ResetDefaultFeed() {
	DefaultFeed = NewFeed()
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (f *Feed) Subscribe(fn Listener) func() {
	if f == nil || fn == nil {
		return func() {}
	}
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.order = append(f.order, id)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
			for i, existing := range f.order {
				if existing == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (f *Feed) Notify(change Change) {
	if f == nil {
		return
	}
	f.mu.Lock()
	snapshot := make([]Listener, 0, len(f.order))
	for _, id := range f.order {
		snapshot = append(snapshot, f.listeners[id])
	}
	f.mu.Unlock()

	for _, fn := range snapshot {
		fn(change)
	}
}

func (f *Feed) Len() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}
