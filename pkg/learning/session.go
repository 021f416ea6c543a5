package learning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

type Session struct {
	chatID         int64
	userID         int64
	category       string
	currentPair    *db.TranslationPair
	lastPairID     uint
	currentToken   string
	messageID      int
	revealed       bool
	lastActivityAt time.Time
}

// SessionSnapshot is a copy of a session's state, safe to use without the
// manager lock.
type SessionSnapshot struct {
	Category   string
	Pair       db.TranslationPair
	HasPair    bool
	LastPairID uint
	Token      string
	MessageID  int
	Revealed   bool
}

// ExcludeID is the pair the next selection should avoid repeating.
func (s SessionSnapshot) ExcludeID() uint {
	if s.HasPair {
		return s.Pair.ID
	}
	return s.LastPairID
}

type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewSessionManager(now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

var DefaultManager = NewSessionManager(nil)

func ResetDefaultManager(now func() time.Time) {
	DefaultManager = NewSessionManager(now)
}

const (
	SessionInactivityTimeout = 24 * time.Hour
	SessionSweeperInterval   = 10 * time.Minute
)

func StartLearningSweeper(ctx context.Context) {
	DefaultManager.StartSweeper(ctx)
}

// Ensure returns the session for the chat, restoring it from the store when
// the process has restarted since it was last used.
func (m *SessionManager) Ensure(chatID, userID int64) *Session {
	key := sessionKey(chatID, userID)
	m.mu.Lock()
	if session := m.sessions[key]; session != nil {
		m.mu.Unlock()
		return session
	}
	m.mu.Unlock()

	now := m.now()
	session := &Session{chatID: chatID, userID: userID, lastActivityAt: now}
	row, err := LoadLearningSession(chatID, userID, now)
	if err != nil {
		logger.Error("failed to load learning session", "user_id", userID, "error", err)
	}
	if row != nil {
		session.category = row.Category
		session.lastPairID = row.LastPairID
		session.currentToken = row.CurrentToken
		session.messageID = row.CurrentMessageID
		session.revealed = row.Revealed
		if row.CurrentPairID != 0 {
			var pair db.TranslationPair
			if err := db.DB.First(&pair, row.CurrentPairID).Error; err == nil {
				session.currentPair = &pair
			} else {
				session.lastPairID = row.CurrentPairID
				session.currentToken = ""
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.sessions[key]; existing != nil {
		return existing
	}
	m.sessions[key] = session
	return session
}

func (m *SessionManager) SetCategory(chatID, userID int64, category string) {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	session.category = strings.TrimSpace(category)
	session.lastActivityAt = m.now()
	row := buildLearningSession(session)
	m.mu.Unlock()
	persist(row)
}

func (m *SessionManager) Category(chatID, userID int64) string {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return session.category
}

// Present makes pair the current drill prompt and returns its fresh token.
// The previous prompt, if any, becomes the pair to avoid next.
func (m *SessionManager) Present(chatID, userID int64, pair db.TranslationPair) string {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	if session.currentPair != nil {
		session.lastPairID = session.currentPair.ID
	}
	session.currentPair = &pair
	session.currentToken = nextToken()
	session.messageID = 0
	session.revealed = false
	session.lastActivityAt = m.now()
	token := session.currentToken
	row := buildLearningSession(session)
	m.mu.Unlock()
	persist(row)
	return token
}

// Resolve clears the current prompt after a result was recorded or the pair
// was skipped.
func (m *SessionManager) Resolve(chatID, userID int64) {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	if session.currentPair != nil {
		session.lastPairID = session.currentPair.ID
	}
	session.currentPair = nil
	session.currentToken = ""
	session.messageID = 0
	session.revealed = false
	session.lastActivityAt = m.now()
	row := buildLearningSession(session)
	m.mu.Unlock()
	persist(row)
}

func (m *SessionManager) SetMessageID(chatID, userID int64, messageID int) {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	session.messageID = messageID
	row := buildLearningSession(session)
	m.mu.Unlock()
	persist(row)
}

func (m *SessionManager) MarkRevealed(chatID, userID int64) {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	session.revealed = true
	session.lastActivityAt = m.now()
	row := buildLearningSession(session)
	m.mu.Unlock()
	persist(row)
}

func (m *SessionManager) Snapshot(chatID, userID int64) SessionSnapshot {
	session := m.Ensure(chatID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := SessionSnapshot{
		Category:   session.category,
		LastPairID: session.lastPairID,
		Token:      session.currentToken,
		MessageID:  session.messageID,
		Revealed:   session.revealed,
	}
	if session.currentPair != nil {
		snapshot.Pair = *session.currentPair
		snapshot.HasPair = true
	}
	return snapshot
}

// Forget drops a deleted pair from every session so it is never graded.
func (m *SessionManager) Forget(pairID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.currentPair != nil && session.currentPair.ID == pairID {
			session.currentPair = nil
			session.currentToken = ""
		}
		if session.lastPairID == pairID {
			session.lastPairID = 0
		}
	}
}

func (m *SessionManager) End(chatID, userID int64) {
	m.mu.Lock()
	delete(m.sessions, sessionKey(chatID, userID))
	m.mu.Unlock()
	if err := DeleteLearningSession(chatID, userID); err != nil {
		logger.Error("failed to delete learning session", "user_id", userID, "error", err)
	}
}

func (m *SessionManager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(SessionSweeperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepInactive(m.now())
		}
	}
}

// SweepInactive evicts idle sessions from memory. Their persisted rows stay
// until they expire.
func (m *SessionManager) SweepInactive(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, session := range m.sessions {
		if session == nil || now.Sub(session.lastActivityAt) > SessionInactivityTimeout {
			delete(m.sessions, key)
		}
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// nextToken returns a short id that fits in Telegram callback data.
func nextToken() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}

func buildLearningSession(session *Session) *db.LearningSession {
	row := &db.LearningSession{
		ChatID:           session.chatID,
		UserID:           session.userID,
		Category:         session.category,
		LastPairID:       session.lastPairID,
		CurrentToken:     session.currentToken,
		CurrentMessageID: session.messageID,
		Revealed:         session.revealed,
		LastActivityAt:   session.lastActivityAt,
	}
	if session.currentPair != nil {
		row.CurrentPairID = session.currentPair.ID
	}
	return row
}

func persist(row *db.LearningSession) {
	if err := UpsertLearningSession(row); err != nil {
		logger.Error("failed to persist learning session", "user_id", row.UserID, "error", err)
	}
}
