package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/internal/testutil"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// setupHandlers gives each test a fresh database, fresh in-memory state and
// a bot backed by a recording client.
func setupHandlers(t *testing.T) (*mockClient, *telegram.Bot) {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)
	testutil.SetupTestDB(t)

	categories.ResetDefaultFeed()
	learning.ResetDefaultManager(func() time.Time { return testNow })
	capture.ResetDefaultManager(func() time.Time { return testNow })
	chats = newChatState()
	Configure(Services{})

	previousNow := now
	now = func() time.Time { return testNow }
	previousDownload := downloadFile

	t.Cleanup(func() {
		chats.close()
		now = previousNow
		downloadFile = previousDownload
		Configure(Services{})
	})

	client := newMockClient()
	return client, newTestTelegramBot(t, client)
}

func stubDownload(t *testing.T, data []byte) {
	t.Helper()
	downloadFile = func(context.Context, *telegram.Bot, string) ([]byte, error) {
		return data, nil
	}
}

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	mu       sync.Mutex
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	m.mu.Unlock()

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	value, _ := m.lastMultipartField(t, "text")
	return value
}

func (m *mockClient) lastMultipartField(t *testing.T, fieldName string) (string, string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	value, fileName, ok := multipartField(t, m.requests[len(m.requests)-1], fieldName)
	if !ok {
		t.Fatalf("field %q not found in request", fieldName)
	}
	return value, fileName
}

// fieldsFor returns fieldName of every request made to the given API method.
func (m *mockClient) fieldsFor(t *testing.T, method, fieldName string) []string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var values []string
	for _, req := range m.requests {
		if !strings.HasSuffix(req.path, "/"+method) {
			continue
		}
		if value, _, ok := multipartField(t, req, fieldName); ok {
			values = append(values, value)
		}
	}
	return values
}

func (m *mockClient) sentTexts(t *testing.T) []string {
	t.Helper()
	return m.fieldsFor(t, "sendMessage", "text")
}

func (m *mockClient) count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+method) {
			n++
		}
	}
	return n
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) (string, string, bool) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", "", false
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), part.FileName(), true
		}
	}
}

func (m *mockClient) lastRequestBody(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	return string(m.requests[len(m.requests)-1].body)
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID: userID,
			},
			Text: text,
		},
	}
}

func newTestDocumentUpdate(fileName, fileID string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Document: &models.Document{
				FileID:   fileID,
				FileName: fileName,
			},
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

func newTestVoiceUpdate(fileID string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{ID: userID},
			Chat: models.Chat{ID: userID, Type: models.ChatTypePrivate},
			Voice: &models.Voice{
				FileID:   fileID,
				MimeType: "audio/ogg",
			},
		},
	}
}

func send(b *telegram.Bot, text string, userID int64) {
	DefaultHandler(context.Background(), b, newTestUpdate(text, userID))
}
