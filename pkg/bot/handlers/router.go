package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

type commandFunc func(ctx context.Context, b *bot.Bot, msg *models.Message, args string)

// Commands are dispatched by exact name so that /list never matches /listen.
var commands = map[string]commandFunc{
	"start":      handleHelp,
	"help":       handleHelp,
	"add":        handleAdd,
	"learn":      handleLearn,
	"categories": handleCategories,
	"progress":   handleProgress,
	"reset":      handleReset,
	"rename":     handleRename,
	"merge":      handleMerge,
	"removecat":  handleRemoveCategory,
	"tag":        handleTag,
	"delete":     handleDelete,
	"edit":       handleEdit,
	"search":     handleSearch,
	"list":       handleList,
	"export":     handleExportCSV,
	"exportxlsx": handleExportXLSX,
	"speak":      handleSpeak,
	"listen":     handleListen,
	"stop":       handleStop,
}

const helpText = "Send me a phrase and I'll translate it and offer to save it.\n\n" +
	"Commands:\n" +
	"/add source = target | category, category\n" +
	"/learn [category] - drill your phrases\n" +
	"/categories - list categories\n" +
	"/progress - learned pairs in the selected category\n" +
	"/reset [category] - forget learning progress\n" +
	"/rename old => new\n" +
	"/merge a + b => merged\n" +
	"/removecat name\n" +
	"/tag id category, category\n" +
	"/edit id - replace the text of a pair\n" +
	"/delete id\n" +
	"/search text\n" +
	"/list - recently added pairs\n" +
	"/export, /exportxlsx - download your phrasebook\n" +
	"/speak text - hear the pronunciation\n" +
	"/listen - send a voice message to translate, /stop to cancel\n\n" +
	"Attach a .csv or .xlsx file with Original,Translated columns to import it."

// DefaultHandler receives every message. Pending edits are captured first,
// then files, voice, commands and finally plain text for translation.
func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Error("received invalid update in DefaultHandler")
		return
	}
	msg := update.Message
	if msg.Chat.ID == 0 {
		logger.Error("chat ID is zero in DefaultHandler")
		return
	}

	if name, args, ok := parseCommand(msg.Text); ok {
		capture.DefaultManager.Stop(capture.KindEdit, senderID(msg))
		handler, known := commands[name]
		if !known {
			reply(ctx, b, msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
			return
		}
		handler(ctx, b, msg, args)
		return
	}

	switch {
	case msg.Document != nil:
		handleDocumentImport(ctx, b, msg)
	case msg.Voice != nil || msg.Audio != nil:
		handleVoice(ctx, b, msg)
	case strings.TrimSpace(msg.Text) != "":
		if handleEditInput(ctx, b, msg) {
			return
		}
		handleTranslate(ctx, b, msg)
	default:
		reply(ctx, b, msg.Chat.ID, helpText)
	}
}

func handleHelp(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	reply(ctx, b, msg.Chat.ID, helpText)
}

// parseCommand splits "/name@bot args" into the lower-case name and the
// trimmed arguments.
func parseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(args), true
}

// AccessMiddleware drops updates from users outside telegram.allowed_user_ids.
func AccessMiddleware() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update == nil {
				return
			}
			var userID int64
			switch {
			case update.Message != nil && update.Message.From != nil:
				userID = update.Message.From.ID
			case update.CallbackQuery != nil:
				userID = update.CallbackQuery.From.ID
			}
			if !config.AppConfig.Telegram.IsAllowedUser(userID) {
				logger.Warn("ignoring update from unauthorised user", "user_id", userID)
				return
			}
			next(ctx, b, update)
		}
	}
}
