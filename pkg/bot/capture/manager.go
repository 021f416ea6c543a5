package capture

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names a window in which the next message from a user is captured
// instead of being handled normally.
type Kind string

const (
	KindEdit   Kind = "edit"
	KindListen Kind = "listen"
)

const (
	EditTimeout   = 5 * time.Minute
	ListenTimeout = 2 * time.Minute
	OfferTimeout  = 30 * time.Minute
)

type Pending struct {
	ChatID    int64
	PairID    uint
	ExpiresAt time.Time
}

// Offer is a translation waiting for the user to press Save or Dismiss.
type Offer struct {
	ChatID    int64
	UserID    int64
	Source    string
	Target    string
	ExpiresAt time.Time
}

type windowKey struct {
	kind   Kind
	userID int64
}

type Manager struct {
	mu      sync.Mutex
	windows map[windowKey]Pending
	offers  map[string]Offer
	now     func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		windows: make(map[windowKey]Pending),
		offers:  make(map[string]Offer),
		now:     now,
	}
}

var DefaultManager = NewManager(nil)

func ResetDefaultManager(now func() time.Time) {
	DefaultManager = NewManager(now)
}

// Start opens a window of kind for the user, replacing any open one.
func (m *Manager) Start(kind Kind, userID, chatID int64, pairID uint, now time.Time, timeout time.Duration) {
	if m == nil || userID == 0 || chatID == 0 {
		return
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[windowKey{kind: kind, userID: userID}] = Pending{
		ChatID:    chatID,
		PairID:    pairID,
		ExpiresAt: now.Add(timeout),
	}
}

// Consume closes the window and returns it if it was open in chatID.
func (m *Manager) Consume(kind Kind, userID, chatID int64, now time.Time) (Pending, bool) {
	if m == nil || userID == 0 || chatID == 0 {
		return Pending{}, false
	}
	if now.IsZero() {
		now = m.now()
	}
	key := windowKey{kind: kind, userID: userID}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.windows[key]
	if !ok || entry.ChatID != chatID {
		return Pending{}, false
	}
	delete(m.windows, key)
	if expired(entry.ExpiresAt, now) {
		return Pending{}, false
	}
	return entry, true
}

// Active reports whether the window is open without closing it.
func (m *Manager) Active(kind Kind, userID, chatID int64, now time.Time) bool {
	if m == nil || userID == 0 || chatID == 0 {
		return false
	}
	if now.IsZero() {
		now = m.now()
	}
	key := windowKey{kind: kind, userID: userID}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.windows[key]
	if !ok || entry.ChatID != chatID {
		return false
	}
	if expired(entry.ExpiresAt, now) {
		delete(m.windows, key)
		return false
	}
	return true
}

// Stop closes the window and reports whether one was open.
func (m *Manager) Stop(kind Kind, userID int64) bool {
	if m == nil {
		return false
	}
	key := windowKey{kind: kind, userID: userID}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.windows[key]
	delete(m.windows, key)
	return ok
}

// Offer stores a translation and returns the token for its buttons.
func (m *Manager) Offer(userID, chatID int64, source, target string, now time.Time, timeout time.Duration) string {
	if m == nil {
		return ""
	}
	if now.IsZero() {
		now = m.now()
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[token] = Offer{
		ChatID:    chatID,
		UserID:    userID,
		Source:    source,
		Target:    target,
		ExpiresAt: now.Add(timeout),
	}
	return token
}

// TakeOffer removes and returns the offer if it belongs to userID and has
// not expired.
func (m *Manager) TakeOffer(token string, userID int64, now time.Time) (Offer, bool) {
	if m == nil || token == "" {
		return Offer{}, false
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	offer, ok := m.offers[token]
	if !ok || offer.UserID != userID {
		return Offer{}, false
	}
	delete(m.offers, token)
	if expired(offer.ExpiresAt, now) {
		return Offer{}, false
	}
	return offer, true
}

func (m *Manager) SweepExpired(now time.Time) {
	if m == nil {
		return
	}
	if now.IsZero() {
		now = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.windows {
		if expired(entry.ExpiresAt, now) {
			delete(m.windows, key)
		}
	}
	for token, offer := range m.offers {
		if expired(offer.ExpiresAt, now) {
			delete(m.offers, token)
		}
	}
}

func (m *Manager) StartSweeper(ctx context.Context) {
	if m == nil || ctx == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired(m.now())
		}
	}
}

func expired(expiresAt, now time.Time) bool {
	return expiresAt.IsZero() || !now.Before(expiresAt)
}
