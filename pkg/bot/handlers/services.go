package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
	"github.com/smith3v/tg-phrasebook/pkg/speech"
	"github.com/smith3v/tg-phrasebook/pkg/translation"
)

// Services are the platform services the handlers call out to.
type Services struct {
	Translator *translation.Service
	Speaker    speech.Speaker
	Recognizer speech.Recognizer
}

var (
	servicesMu sync.RWMutex
	services   = defaultServices()
)

var now = func() time.Time { return time.Now().UTC() }

func defaultServices() Services {
	return Services{
		Translator: translation.NewService(translation.DefaultDictionary(), nil, "en", "es"),
		Speaker:    speech.Disabled{},
		Recognizer: speech.Disabled{},
	}
}

// Configure replaces the services. Nil fields keep the dictionary-only
// translator and disabled speech.
func Configure(s Services) {
	defaults := defaultServices()
	if s.Translator == nil {
		s.Translator = defaults.Translator
	}
	if s.Speaker == nil {
		s.Speaker = defaults.Speaker
	}
	if s.Recognizer == nil {
		s.Recognizer = defaults.Recognizer
	}
	servicesMu.Lock()
	services = s
	servicesMu.Unlock()
}

func currentServices() Services {
	servicesMu.RLock()
	defer servicesMu.RUnlock()
	return services
}

// downloadFile fetches a file the user sent. Tests replace it.
var downloadFile = func(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", config.AppConfig.Telegram.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// chatState holds the per-chat objects that outlive a single update.
// Trackers follow the learner's category, so they are kept per user as well.
type chatState struct {
	mu       sync.Mutex
	trackers map[learnerKey]*learning.Tracker
	searches map[int64]*phrases.LiveSearch
}

type learnerKey struct {
	chatID int64
	userID int64
}

var chats = newChatState()

func newChatState() *chatState {
	return &chatState{
		trackers: make(map[learnerKey]*learning.Tracker),
		searches: make(map[int64]*phrases.LiveSearch),
	}
}

// tracker returns the progress tracker of userID in chatID with category
// selected.
func (c *chatState) tracker(ctx context.Context, chatID, userID int64, category string) *learning.Tracker {
	key := learnerKey{chatID: chatID, userID: userID}
	c.mu.Lock()
	t, ok := c.trackers[key]
	if !ok {
		t = learning.NewTracker(categories.DefaultFeed, nil)
		c.trackers[key] = t
	}
	c.mu.Unlock()

	if current, _ := t.Current(); !ok || current != category {
		t.SetCategory(ctx, category)
	}
	return t
}

func (c *chatState) search(chatID int64, create func() *phrases.LiveSearch) *phrases.LiveSearch {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.searches[chatID]
	if !ok {
		s = create()
		c.searches[chatID] = s
	}
	return s
}

func (c *chatState) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.trackers {
		t.Close()
	}
	for _, s := range c.searches {
		s.Stop()
		s.Wait()
	}
	c.trackers = make(map[learnerKey]*learning.Tracker)
	c.searches = make(map[int64]*phrases.LiveSearch)
}

// Shutdown stops per-chat searches and tracker subscriptions.
func Shutdown() {
	chats.close()
}

func reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func senderID(msg *models.Message) int64 {
	if msg == nil || msg.From == nil {
		return 0
	}
	return msg.From.ID
}

func cutoff() time.Time {
	hours := config.AppConfig.Learning.CutoffHours
	if hours <= 0 {
		return now().Add(-learning.DefaultCutoff)
	}
	return now().Add(-time.Duration(hours) * time.Hour)
}
