package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/speech"
)

func handleSpeak(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	if args == "" {
		reply(ctx, b, msg.Chat.ID, "Usage: /speak text")
		return
	}
	sendSpeech(ctx, b, msg.Chat.ID, args)
}

func handleListen(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	capture.DefaultManager.Start(capture.KindListen, senderID(msg), msg.Chat.ID, 0, now(), capture.ListenTimeout)
	reply(ctx, b, msg.Chat.ID, "Listening. Send a voice message, or /stop to cancel.")
}

func handleStop(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	if capture.DefaultManager.Stop(capture.KindListen, senderID(msg)) {
		reply(ctx, b, msg.Chat.ID, "Stopped listening.")
		return
	}
	reply(ctx, b, msg.Chat.ID, "Not listening.")
}

// handleVoice recognises a voice message sent inside a listening window and
// offers its translation like typed text.
func handleVoice(ctx context.Context, b *bot.Bot, msg *models.Message) {
	userID := senderID(msg)
	if _, ok := capture.DefaultManager.Consume(capture.KindListen, userID, msg.Chat.ID, now()); !ok {
		reply(ctx, b, msg.Chat.ID, "Send /listen first, then your voice message.")
		return
	}

	fileID, mimeType := voiceFile(msg)
	data, err := downloadFile(ctx, b, fileID)
	if err != nil {
		logger.Error("failed to download voice message", "user_id", userID, "error", err)
		reply(ctx, b, msg.Chat.ID, "Failed to download the voice message. Please try again.")
		return
	}

	text, err := currentServices().Recognizer.Recognize(ctx, data, mimeType)
	switch {
	case errors.Is(err, speech.ErrUnavailable):
		reply(ctx, b, msg.Chat.ID, "Speech recognition is not available right now.")
		return
	case err != nil:
		logger.Error("speech recognition failed", "user_id", userID, "error", err)
		reply(ctx, b, msg.Chat.ID, "I could not understand that. Please try again.")
		return
	}
	if strings.TrimSpace(text) == "" {
		reply(ctx, b, msg.Chat.ID, "I did not hear anything. Send /listen to try again.")
		return
	}

	offerTranslation(ctx, b, msg.Chat.ID, userID, text)
}

func voiceFile(msg *models.Message) (string, string) {
	if msg.Voice != nil {
		mimeType := msg.Voice.MimeType
		if mimeType == "" {
			mimeType = "audio/ogg"
		}
		return msg.Voice.FileID, mimeType
	}
	return msg.Audio.FileID, msg.Audio.MimeType
}
