package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
)

const (
	addUsage  = "Usage: /add source = target | category, category"
	editUsage = "Send the new text as: source = target"
)

// parsePairText splits "source = target | cat, cat". The category part is
// optional.
func parsePairText(text string) (source, target string, names []string, ok bool) {
	body, tags, hasTags := strings.Cut(text, "|")
	source, target, found := strings.Cut(body, "=")
	if !found {
		return "", "", nil, false
	}
	if hasTags {
		names = splitNames(tags)
	}
	return strings.TrimSpace(source), strings.TrimSpace(target), names, true
}

func splitNames(text string) []string {
	var names []string
	for _, name := range strings.Split(text, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parsePairID reads the leading "#12" or "12" of args and returns the rest.
func parsePairID(args string) (uint, string, bool) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, err := strconv.ParseUint(strings.TrimPrefix(head, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, "", false
	}
	return uint(id), strings.TrimSpace(rest), true
}

func pairErrorText(err error) string {
	switch {
	case errors.Is(err, phrases.ErrBlankText):
		return "Both the phrase and its translation must be filled in."
	case errors.Is(err, phrases.ErrDuplicatePair):
		return "This pair is already in your phrasebook."
	case errors.Is(err, phrases.ErrNotFound):
		return "That pair no longer exists."
	default:
		return "Failed to save the pair. Please try again later."
	}
}

func handleAdd(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	source, target, names, ok := parsePairText(args)
	if !ok {
		reply(ctx, b, msg.Chat.ID, addUsage)
		return
	}
	pair, err := phrases.Add(ctx, source, target, names)
	if err != nil {
		reply(ctx, b, msg.Chat.ID, pairErrorText(err))
		return
	}
	logger.Info("pair added", "pair_id", pair.ID, "user_id", senderID(msg))
	reply(ctx, b, msg.Chat.ID, "Saved "+ui.RenderPairLine(*pair))
}

func handleDelete(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	id, _, ok := parsePairID(args)
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /delete id")
		return
	}
	if err := phrases.Delete(ctx, id); err != nil {
		if errors.Is(err, phrases.ErrNotFound) {
			reply(ctx, b, msg.Chat.ID, fmt.Sprintf("No pair #%d.", id))
			return
		}
		reply(ctx, b, msg.Chat.ID, "Failed to delete the pair. Please try again later.")
		return
	}
	learning.DefaultManager.Forget(id)
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("Deleted #%d.", id))
}

func handleEdit(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	id, _, ok := parsePairID(args)
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /edit id")
		return
	}
	pair := phrases.Get(ctx, id)
	if pair == nil {
		reply(ctx, b, msg.Chat.ID, fmt.Sprintf("No pair #%d.", id))
		return
	}
	capture.DefaultManager.Start(capture.KindEdit, senderID(msg), msg.Chat.ID, id, now(), capture.EditTimeout)
	reply(ctx, b, msg.Chat.ID, "Editing "+ui.RenderPairLine(*pair)+"\n"+editUsage)
}

// handleEditInput applies the text that follows /edit. It reports whether
// the message was consumed.
func handleEditInput(ctx context.Context, b *bot.Bot, msg *models.Message) bool {
	userID := senderID(msg)
	pending, ok := capture.DefaultManager.Consume(capture.KindEdit, userID, msg.Chat.ID, now())
	if !ok {
		return false
	}

	source, target, _, parsed := parsePairText(msg.Text)
	if !parsed {
		capture.DefaultManager.Start(capture.KindEdit, userID, msg.Chat.ID, pending.PairID, now(), capture.EditTimeout)
		reply(ctx, b, msg.Chat.ID, editUsage)
		return true
	}
	if _, err := phrases.Update(ctx, pending.PairID, source, target); err != nil {
		reply(ctx, b, msg.Chat.ID, pairErrorText(err))
		return true
	}
	updated := phrases.Get(ctx, pending.PairID)
	if updated == nil {
		reply(ctx, b, msg.Chat.ID, pairErrorText(phrases.ErrNotFound))
		return true
	}
	reply(ctx, b, msg.Chat.ID, "Updated "+ui.RenderPairLine(*updated))
	return true
}

func handleTag(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	id, rest, ok := parsePairID(args)
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /tag id category, category")
		return
	}
	if phrases.Get(ctx, id) == nil {
		reply(ctx, b, msg.Chat.ID, fmt.Sprintf("No pair #%d.", id))
		return
	}
	if err := categories.Set(ctx, id, splitNames(rest)); err != nil {
		reply(ctx, b, msg.Chat.ID, "Failed to update categories. Please try again later.")
		return
	}
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("#%d is now in: %s", id, strings.Join(categories.For(ctx, id), ", ")))
}

func handleSearch(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	if args == "" {
		reply(ctx, b, msg.Chat.ID, "Usage: /search text")
		return
	}
	chatID := msg.Chat.ID
	search := chats.search(chatID, func() *phrases.LiveSearch {
		return phrases.NewLiveSearch(func(query string, pairs []db.TranslationPair) {
			reply(context.Background(), b, chatID, ui.RenderPairList(fmt.Sprintf("Results for %q:", query), pairs))
		})
	})
	search.Query(ctx, args)
}

func handleList(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	pairs := phrases.Recent(ctx, phrases.DefaultListLimit)
	title := fmt.Sprintf("Recent pairs (%d total):", phrases.Count(ctx))
	reply(ctx, b, msg.Chat.ID, ui.RenderPairList(title, pairs))
}
