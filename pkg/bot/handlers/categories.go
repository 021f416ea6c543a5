package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
)

const rankedPairsShown = 3

func handleCategories(ctx context.Context, b *bot.Bot, msg *models.Message, _ string) {
	summaries := categories.Summaries(ctx)
	if len(summaries) == 0 {
		reply(ctx, b, msg.Chat.ID, "No categories yet. Add phrases first.")
		return
	}
	lines := make([]string, 0, len(summaries)+1)
	lines = append(lines, "Categories:")
	for _, summary := range summaries {
		lines = append(lines, fmt.Sprintf("%s (%d)", summary.Name, summary.Pairs))
	}
	reply(ctx, b, msg.Chat.ID, strings.Join(lines, "\n"))
}

func handleProgress(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	chatID := msg.Chat.ID
	category := learning.DefaultManager.Category(chatID, senderID(msg))
	if args != "" {
		resolved, ok := resolveCategory(ctx, args)
		if !ok {
			reply(ctx, b, chatID, fmt.Sprintf("Unknown category %q.", args))
			return
		}
		category = resolved
	}

	var sb strings.Builder
	if category == "" {
		sb.WriteString(ui.AllCategoriesLabel + "\nPick a category with /learn to see its progress.")
	} else {
		progress := learning.Aggregate(ctx, category)
		fmt.Fprintf(&sb, "%s: %s learned", category, ui.FormatProgress(progress))
	}

	writeRanked(&sb, "Most difficult:", learning.MostDifficult(ctx, rankedPairsShown), func(stat learning.PairStat) bool {
		return stat.FailureCount > 0
	})
	writeRanked(&sb, "Best known:", learning.MostSuccessful(ctx, rankedPairsShown), func(stat learning.PairStat) bool {
		return stat.SuccessCount > 0
	})
	reply(ctx, b, chatID, sb.String())
}

// writeRanked appends a titled block of stats that pass keep; nothing is
// written when none do.
func writeRanked(sb *strings.Builder, title string, stats []learning.PairStat, keep func(learning.PairStat) bool) {
	var lines []string
	for _, stat := range stats {
		if !keep(stat) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s → %s (missed %d, knew %d)", stat.Source, stat.Target, stat.FailureCount, stat.SuccessCount))
	}
	if len(lines) == 0 {
		return
	}
	sb.WriteString("\n\n" + title + "\n")
	sb.WriteString(strings.Join(lines, "\n"))
}

func handleReset(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	chatID, userID := msg.Chat.ID, senderID(msg)
	category := learning.DefaultManager.Category(chatID, userID)
	if args != "" {
		resolved, ok := resolveCategory(ctx, args)
		if !ok {
			reply(ctx, b, chatID, fmt.Sprintf("Unknown category %q.", args))
			return
		}
		category = resolved
	}
	if category == "" {
		reply(ctx, b, chatID, "Usage: /reset category")
		return
	}

	count, err := learning.ResetProgress(ctx, category)
	chats.tracker(ctx, chatID, userID, learning.DefaultManager.Category(chatID, userID)).Refresh(ctx)
	if err != nil {
		reply(ctx, b, chatID, fmt.Sprintf("Reset stopped after %d pairs. Please try again later.", count))
		return
	}
	reply(ctx, b, chatID, fmt.Sprintf("Progress reset for %d pairs in %s.", count, category))
}

func handleRename(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	oldName, newName, ok := strings.Cut(args, "=>")
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /rename old => new")
		return
	}
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if err := categories.Rename(ctx, oldName, newName); err != nil {
		reply(ctx, b, msg.Chat.ID, categoryErrorText(err))
		return
	}
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("Renamed %s to %s.", oldName, newName))
}

func handleMerge(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	sources, merged, ok := strings.Cut(args, "=>")
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /merge a + b => merged")
		return
	}
	a, c, ok := strings.Cut(sources, "+")
	if !ok {
		reply(ctx, b, msg.Chat.ID, "Usage: /merge a + b => merged")
		return
	}
	a, c, merged = strings.TrimSpace(a), strings.TrimSpace(c), strings.TrimSpace(merged)
	if err := categories.Merge(ctx, a, c, merged); err != nil {
		reply(ctx, b, msg.Chat.ID, categoryErrorText(err))
		return
	}
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("Merged %s and %s into %s.", a, c, merged))
}

func handleRemoveCategory(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	if args == "" {
		reply(ctx, b, msg.Chat.ID, "Usage: /removecat name")
		return
	}
	if err := categories.Remove(ctx, args); err != nil {
		reply(ctx, b, msg.Chat.ID, categoryErrorText(err))
		return
	}
	reply(ctx, b, msg.Chat.ID, fmt.Sprintf("Removed category %s. Its pairs are kept.", args))
}

func categoryErrorText(err error) string {
	switch {
	case errors.Is(err, categories.ErrBlankCategory):
		return "Category names must not be empty."
	case errors.Is(err, categories.ErrSameCategory):
		return "Pick two different categories to merge."
	default:
		return "Failed to update categories. Please try again later."
	}
}
