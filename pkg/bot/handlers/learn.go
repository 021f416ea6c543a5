package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/speech"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
)

const noPairsText = "No learning pairs available.\nAdd some translations first."

func handleLearn(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	userID := senderID(msg)
	chatID := msg.Chat.ID

	if args == "" {
		sendCategoryPicker(ctx, b, chatID, learning.DefaultManager.Category(chatID, userID))
		sendNextDrill(ctx, b, chatID, userID)
		return
	}

	category, ok := resolveCategory(ctx, args)
	if !ok {
		reply(ctx, b, chatID, fmt.Sprintf("Unknown category %q. Send /categories to see them.", args))
		return
	}
	selectCategory(ctx, chatID, userID, category)
	sendNextDrill(ctx, b, chatID, userID)
}

// resolveCategory matches name against the stored categories ignoring case.
// "all" selects every pair.
func resolveCategory(ctx context.Context, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "all") || strings.EqualFold(name, ui.AllCategoriesLabel) {
		return "", true
	}
	for _, existing := range categories.All(ctx) {
		if strings.EqualFold(existing, name) {
			return existing, true
		}
	}
	return "", false
}

func selectCategory(ctx context.Context, chatID, userID int64, category string) {
	learning.DefaultManager.SetCategory(chatID, userID, category)
	chats.tracker(ctx, chatID, userID, category)
}

func sendCategoryPicker(ctx context.Context, b *bot.Bot, chatID int64, selected string) {
	text, keyboard, err := ui.RenderCategoryPicker(categories.All(ctx), selected)
	if err != nil {
		logger.Error("failed to render category picker", "chat_id", chatID, "error", err)
		return
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	}); err != nil {
		logger.Error("failed to send category picker", "chat_id", chatID, "error", err)
	}
}

// sendNextDrill picks the next pair for the chat's category and sends it as
// a fresh prompt.
func sendNextDrill(ctx context.Context, b *bot.Bot, chatID, userID int64) {
	snapshot := learning.DefaultManager.Snapshot(chatID, userID)
	pair := learning.DefaultSelector.SelectNext(ctx, snapshot.Category, snapshot.ExcludeID(), cutoff())
	if pair == nil {
		learning.DefaultManager.Resolve(chatID, userID)
		reply(ctx, b, chatID, noPairsText)
		return
	}

	token := learning.DefaultManager.Present(chatID, userID, *pair)
	_, progress := chats.tracker(ctx, chatID, userID, snapshot.Category).Current()
	text, keyboard, err := ui.RenderDrill(*pair, snapshot.Category, progress, false, token)
	if err != nil {
		logger.Error("failed to render drill", "chat_id", chatID, "pair_id", pair.ID, "error", err)
		return
	}
	sent, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		logger.Error("failed to send drill", "chat_id", chatID, "pair_id", pair.ID, "error", err)
		return
	}
	learning.DefaultManager.SetMessageID(chatID, userID, sent.ID)
}

// callbackMessage returns the accessible message a callback was pressed on.
func callbackMessage(update *models.Update) *models.Message {
	message := update.CallbackQuery.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil {
		return nil
	}
	if message.Message.Chat.ID == 0 {
		return nil
	}
	return message.Message
}

func callbackAnswerer(ctx context.Context, b *bot.Bot, update *models.Update) func(string) {
	callbackID := update.CallbackQuery.ID
	return func(text string) {
		if callbackID == "" {
			return
		}
		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
		}); err != nil {
			logger.Error("failed to answer callback query", "error", err)
		}
	}
}

func HandleCategoryCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleCategoryCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update)

	choice, err := ui.ParseCategoryCallback(update.CallbackQuery.Data)
	if err != nil {
		answerCallback("Not active")
		return
	}
	msg := callbackMessage(update)
	if msg == nil {
		answerCallback("Message missing")
		return
	}

	names := categories.All(ctx)
	category, ok := choice.Resolve(names)
	if !ok {
		answerCallback("Categories changed, send /learn again")
		return
	}
	userID := update.CallbackQuery.From.ID
	selectCategory(ctx, msg.Chat.ID, userID, category)

	label := category
	if label == "" {
		label = ui.AllCategoriesLabel
	}
	answerCallback("Learning: " + label)

	text, keyboard, err := ui.RenderCategoryPicker(names, category)
	if err == nil {
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Text:        text,
			ReplyMarkup: keyboard,
		}); err != nil {
			logger.Error("failed to update category picker", "chat_id", msg.Chat.ID, "error", err)
		}
	}
	sendNextDrill(ctx, b, msg.Chat.ID, userID)
}

func HandleDrillCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleDrillCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update)

	data, err := ui.ParseDrillCallback(update.CallbackQuery.Data)
	if err != nil {
		answerCallback("Not active")
		return
	}
	msg := callbackMessage(update)
	if msg == nil {
		answerCallback("Message missing")
		return
	}
	chatID := msg.Chat.ID
	userID := update.CallbackQuery.From.ID

	snapshot := learning.DefaultManager.Snapshot(chatID, userID)
	if !snapshot.HasPair || snapshot.Token != data.Token {
		answerCallback("Not active")
		return
	}
	if snapshot.MessageID != 0 && msg.ID != 0 && snapshot.MessageID != msg.ID {
		answerCallback("Not active")
		return
	}
	pair := snapshot.Pair

	switch data.Action {
	case ui.DrillShow:
		learning.DefaultManager.MarkRevealed(chatID, userID)
		answerCallback("")
		_, progress := chats.tracker(ctx, chatID, userID, snapshot.Category).Current()
		text, keyboard, err := ui.RenderDrill(pair, snapshot.Category, progress, true, snapshot.Token)
		if err != nil {
			logger.Error("failed to render drill", "chat_id", chatID, "pair_id", pair.ID, "error", err)
			return
		}
		if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   msg.ID,
			Text:        text,
			ReplyMarkup: keyboard,
		}); err != nil {
			logger.Error("failed to reveal drill", "chat_id", chatID, "pair_id", pair.ID, "error", err)
		}

	case ui.DrillSpeak:
		answerCallback("")
		sendSpeech(ctx, b, chatID, pair.Target)

	case ui.DrillKnew, ui.DrillMissed:
		success := data.Action == ui.DrillKnew
		if err := learning.RecordResult(ctx, pair.ID, success, now()); err != nil {
			logger.Error("failed to record drill result", "chat_id", chatID, "pair_id", pair.ID, "error", err)
			answerCallback("Failed to save the result")
			return
		}
		learning.DefaultManager.Resolve(chatID, userID)
		chats.tracker(ctx, chatID, userID, snapshot.Category).Refresh(ctx)
		outcome := "✗ Missed"
		if success {
			outcome = "✓ Knew it"
		}
		answerCallback(outcome)
		finishDrill(ctx, b, chatID, msg.ID, ui.RenderDrillResolved(pair, outcome))
		sendNextDrill(ctx, b, chatID, userID)

	case ui.DrillSkip:
		learning.DefaultManager.Resolve(chatID, userID)
		answerCallback("Skipped")
		finishDrill(ctx, b, chatID, msg.ID, ui.RenderDrillResolved(pair, "Skipped"))
		sendNextDrill(ctx, b, chatID, userID)
	}
}

func finishDrill(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string) {
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: ui.EmptyKeyboard(),
	}); err != nil {
		logger.Error("failed to close drill prompt", "chat_id", chatID, "error", err)
	}
}

// sendSpeech sends text as an audio message, or explains why it cannot.
func sendSpeech(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	audio, err := currentServices().Speaker.Speak(ctx, text)
	switch {
	case errors.Is(err, speech.ErrBlankText):
		reply(ctx, b, chatID, "Nothing to speak.")
		return
	case err != nil:
		reply(ctx, b, chatID, "Speech is not available right now.")
		return
	}
	if _, err := b.SendAudio(ctx, &bot.SendAudioParams{
		ChatID: chatID,
		Audio: &models.InputFileUpload{
			Filename: audio.Filename,
			Data:     bytes.NewReader(audio.Data),
		},
		Caption: text,
	}); err != nil {
		logger.Error("failed to send audio", "chat_id", chatID, "error", err)
	}
}
