package ui

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
)

const AllCategoriesLabel = "All Categories"

// RenderDrill builds the prompt for one drill. The target side is only shown
// once revealed.
func RenderDrill(pair db.TranslationPair, category string, progress learning.Progress, revealed bool, token string) (string, *models.InlineKeyboardMarkup, error) {
	var sb strings.Builder
	sb.WriteString(categoryLine(category, progress))
	sb.WriteString("\n\n")
	sb.WriteString(pair.Source)
	if revealed {
		sb.WriteString("\n→ ")
		sb.WriteString(pair.Target)
	}

	keyboard, err := drillKeyboard(token, revealed)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), keyboard, nil
}

// RenderDrillResolved is the final text of a prompt after grading or skip.
func RenderDrillResolved(pair db.TranslationPair, outcome string) string {
	return fmt.Sprintf("%s\n→ %s\n%s", pair.Source, pair.Target, outcome)
}

func drillKeyboard(token string, revealed bool) (*models.InlineKeyboardMarkup, error) {
	build := func(label string, action DrillAction) (models.InlineKeyboardButton, error) {
		data, err := BuildDrillCallback(token, action)
		if err != nil {
			return models.InlineKeyboardButton{}, err
		}
		return models.InlineKeyboardButton{Text: label, CallbackData: data}, nil
	}

	var first []models.InlineKeyboardButton
	if !revealed {
		show, err := build("Show", DrillShow)
		if err != nil {
			return nil, err
		}
		first = append(first, show)
	}
	speak, err := build("Speak", DrillSpeak)
	if err != nil {
		return nil, err
	}
	first = append(first, speak)

	knew, err := build("Knew it", DrillKnew)
	if err != nil {
		return nil, err
	}
	missed, err := build("Missed", DrillMissed)
	if err != nil {
		return nil, err
	}
	skip, err := build("Skip", DrillSkip)
	if err != nil {
		return nil, err
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			first,
			{knew, missed},
			{skip},
		},
	}, nil
}

func categoryLine(category string, progress learning.Progress) string {
	if category == "" {
		return AllCategoriesLabel
	}
	return fmt.Sprintf("%s · %s", category, FormatProgress(progress))
}

// FormatProgress renders "learned/total (percent%)".
func FormatProgress(progress learning.Progress) string {
	if progress.Empty() {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d (%d%%)", progress.Success, progress.Total, progress.Percent())
}

// RenderCategoryPicker lists "All Categories" followed by names, which must be
// sorted. The current selection is marked.
func RenderCategoryPicker(names []string, selected string) (string, *models.InlineKeyboardMarkup, error) {
	allData, err := BuildAllCategoriesCallback()
	if err != nil {
		return "", nil, err
	}
	rows := [][]models.InlineKeyboardButton{
		{{Text: markSelected(AllCategoriesLabel, selected == ""), CallbackData: allData}},
	}
	for i, name := range names {
		data, err := BuildCategoryCallback(name, i)
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: markSelected(name, strings.EqualFold(name, selected)), CallbackData: data},
		})
	}

	text := "Choose a category to learn."
	if len(names) == 0 {
		text = "No categories yet. Add phrases first."
	}
	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

func markSelected(label string, selected bool) string {
	if selected {
		return "✓ " + label
	}
	return label
}

// RenderSaveOffer shows a translation with Save and Dismiss buttons.
func RenderSaveOffer(source, target, origin string, token string, alreadySaved bool) (string, *models.InlineKeyboardMarkup, error) {
	text := fmt.Sprintf("%s\n→ %s", source, target)
	if origin != "" {
		text += fmt.Sprintf("\n(%s)", origin)
	}
	if alreadySaved {
		return text + "\nAlready in your phrasebook.", nil, nil
	}

	saveData, err := BuildSaveCallback(token, SaveConfirm)
	if err != nil {
		return "", nil, err
	}
	dropData, err := BuildSaveCallback(token, SaveDismiss)
	if err != nil {
		return "", nil, err
	}
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Save", CallbackData: saveData},
				{Text: "Dismiss", CallbackData: dropData},
			},
		},
	}
	return text, keyboard, nil
}

// RenderPairLine is a one-line summary used by /list and /search.
func RenderPairLine(pair db.TranslationPair) string {
	names := make([]string, 0, len(pair.Tags))
	for _, tag := range pair.Tags {
		names = append(names, tag.Category)
	}
	line := fmt.Sprintf("#%d %s → %s", pair.ID, pair.Source, pair.Target)
	if len(names) > 0 {
		line += " [" + strings.Join(names, ", ") + "]"
	}
	return line
}

func RenderPairList(title string, pairs []db.TranslationPair) string {
	if len(pairs) == 0 {
		return title + "\nNothing found."
	}
	lines := make([]string, 0, len(pairs)+1)
	lines = append(lines, title)
	for _, pair := range pairs {
		lines = append(lines, RenderPairLine(pair))
	}
	return strings.Join(lines, "\n")
}

// EmptyKeyboard removes the inline keyboard from an edited message.
func EmptyKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}}
}
