package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
	"github.com/smith3v/tg-phrasebook/pkg/translation"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
)

func handleTranslate(ctx context.Context, b *bot.Bot, msg *models.Message) {
	offerTranslation(ctx, b, msg.Chat.ID, senderID(msg), msg.Text)
}

// offerTranslation translates text and shows it with Save and Dismiss
// buttons. A pair that is already stored is shown without them.
func offerTranslation(ctx context.Context, b *bot.Bot, chatID, userID int64, text string) {
	source := strings.TrimSpace(text)
	if source == "" {
		return
	}

	result, err := currentServices().Translator.Translate(ctx, source, translation.SourceToTarget)
	if err != nil {
		logger.Warn("showing untranslated text", "chat_id", chatID, "error", err)
	}
	target := strings.TrimSpace(result.Text)

	origin := ""
	switch result.Origin {
	case translation.OriginFallback:
		origin = "machine translation"
	case translation.OriginNone:
		origin = "no translation found"
	}

	saved := false
	if db.DB != nil {
		exists, err := phrases.ExistsExact(db.DB.WithContext(ctx), source, target)
		if err != nil {
			logger.Error("failed to check saved pair", "chat_id", chatID, "error", err)
		}
		saved = exists
	}

	token := ""
	if !saved {
		token = capture.DefaultManager.Offer(userID, chatID, source, target, now(), capture.OfferTimeout)
	}
	body, keyboard, err := ui.RenderSaveOffer(source, target, origin, token, saved)
	if err != nil {
		logger.Error("failed to render translation", "chat_id", chatID, "error", err)
		return
	}

	params := &bot.SendMessageParams{ChatID: chatID, Text: body}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		logger.Error("failed to send translation", "chat_id", chatID, "error", err)
	}
}

func HandleSaveCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleSaveCallback")
		return
	}
	answerCallback := callbackAnswerer(ctx, b, update)

	data, err := ui.ParseSaveCallback(update.CallbackQuery.Data)
	if err != nil {
		answerCallback("Not active")
		return
	}
	msg := callbackMessage(update)
	if msg == nil {
		answerCallback("Message missing")
		return
	}

	offer, ok := capture.DefaultManager.TakeOffer(data.Token, update.CallbackQuery.From.ID, now())
	if !ok || offer.ChatID != msg.Chat.ID {
		answerCallback("Not active")
		return
	}

	text := offer.Source + "\n→ " + offer.Target
	if data.Action == ui.SaveDismiss {
		answerCallback("Dismissed")
		editOffer(ctx, b, msg, text)
		return
	}

	pair, err := phrases.Add(ctx, offer.Source, offer.Target, nil)
	if err != nil {
		answerCallback(pairErrorText(err))
		editOffer(ctx, b, msg, text+"\n"+pairErrorText(err))
		return
	}
	answerCallback("Saved")
	editOffer(ctx, b, msg, "Saved "+ui.RenderPairLine(*pair))
}

func editOffer(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	if _, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: ui.EmptyKeyboard(),
	}); err != nil {
		logger.Error("failed to update translation message", "chat_id", msg.Chat.ID, "error", err)
	}
}
