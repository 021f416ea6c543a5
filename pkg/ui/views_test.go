package ui

import (
	"strings"
	"testing"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
)

func TestRenderDrillHidesTargetUntilRevealed(t *testing.T) {
	pair := db.TranslationPair{ID: 3, Source: "la cuenta", Target: "the bill"}

	text, keyboard, err := RenderDrill(pair, "Food", learning.Progress{Success: 3, Total: 5}, false, "tok")
	if err != nil {
		t.Fatalf("RenderDrill returned error: %v", err)
	}
	if strings.Contains(text, "the bill") {
		t.Fatalf("target leaked before reveal: %q", text)
	}
	if !strings.Contains(text, "Food · 3/5 (60%)") {
		t.Fatalf("expected progress line, got %q", text)
	}
	if len(keyboard.InlineKeyboard) != 3 || keyboard.InlineKeyboard[0][0].Text != "Show" {
		t.Fatalf("unexpected keyboard %+v", keyboard.InlineKeyboard)
	}
	if keyboard.InlineKeyboard[1][0].CallbackData != "l:tok:knew" {
		t.Fatalf("unexpected knew callback %q", keyboard.InlineKeyboard[1][0].CallbackData)
	}

	text, keyboard, err = RenderDrill(pair, "", learning.Progress{}, true, "tok")
	if err != nil {
		t.Fatalf("RenderDrill returned error: %v", err)
	}
	if !strings.Contains(text, "→ the bill") || !strings.HasPrefix(text, AllCategoriesLabel) {
		t.Fatalf("unexpected revealed text %q", text)
	}
	if keyboard.InlineKeyboard[0][0].Text != "Speak" {
		t.Fatalf("expected Show to disappear once revealed, got %+v", keyboard.InlineKeyboard[0])
	}
}

func TestRenderCategoryPicker(t *testing.T) {
	text, keyboard, err := RenderCategoryPicker([]string{"Food", "Travel"}, "travel")
	if err != nil {
		t.Fatalf("RenderCategoryPicker returned error: %v", err)
	}
	if text == "" || len(keyboard.InlineKeyboard) != 3 {
		t.Fatalf("unexpected picker %q %+v", text, keyboard)
	}
	if keyboard.InlineKeyboard[0][0].Text != AllCategoriesLabel {
		t.Fatalf("expected All Categories first, got %q", keyboard.InlineKeyboard[0][0].Text)
	}
	if keyboard.InlineKeyboard[2][0].Text != "✓ Travel" {
		t.Fatalf("expected Travel to be marked, got %q", keyboard.InlineKeyboard[2][0].Text)
	}

	_, keyboard, _ = RenderCategoryPicker(nil, "")
	if keyboard.InlineKeyboard[0][0].Text != "✓ "+AllCategoriesLabel {
		t.Fatalf("expected All Categories to be marked, got %q", keyboard.InlineKeyboard[0][0].Text)
	}
}

func TestRenderSaveOffer(t *testing.T) {
	text, keyboard, err := RenderSaveOffer("dog", "perro", "dictionary", "abc", false)
	if err != nil {
		t.Fatalf("RenderSaveOffer returned error: %v", err)
	}
	if text != "dog\n→ perro\n(dictionary)" {
		t.Fatalf("unexpected text %q", text)
	}
	if keyboard.InlineKeyboard[0][0].CallbackData != "v:abc:save" {
		t.Fatalf("unexpected save callback %q", keyboard.InlineKeyboard[0][0].CallbackData)
	}

	_, keyboard, err = RenderSaveOffer("dog", "perro", "", "abc", true)
	if err != nil || keyboard != nil {
		t.Fatalf("expected no keyboard for a saved pair, got %+v, %v", keyboard, err)
	}
}

func TestRenderPairList(t *testing.T) {
	pairs := []db.TranslationPair{
		{ID: 1, Source: "uno", Target: "one", Tags: []db.CategoryTag{{Category: "Numbers"}}},
		{ID: 2, Source: "sol", Target: "sun"},
	}
	got := RenderPairList("Recent phrases:", pairs)
	want := "Recent phrases:\n#1 uno → one [Numbers]\n#2 sol → sun"
	if got != want {
		t.Fatalf("unexpected list:\n%s", got)
	}
	if got := RenderPairList("Results:", nil); got != "Results:\nNothing found." {
		t.Fatalf("unexpected empty list %q", got)
	}
}

func TestFormatProgress(t *testing.T) {
	if got := FormatProgress(learning.Progress{}); got != "0/0" {
		t.Fatalf("unexpected empty progress %q", got)
	}
	if got := FormatProgress(learning.Progress{Success: 1, Total: 3}); got != "1/3 (33%)" {
		t.Fatalf("unexpected progress %q", got)
	}
}
