package phrases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/internal/testutil"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

func setup(t *testing.T) {
	t.Helper()
	testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	categories.ResetDefaultFeed()
}

func mustAdd(t *testing.T, source, target string, names ...string) *db.TranslationPair {
	t.Helper()
	pair, err := Add(context.Background(), source, target, names)
	if err != nil {
		t.Fatalf("Add(%q, %q) returned error: %v", source, target, err)
	}
	return pair
}

func TestAddStoresTrimmedPairWithDefaultCategory(t *testing.T) {
	setup(t)

	var changes []categories.Change
	categories.DefaultFeed.Subscribe(func(c categories.Change) { changes = append(changes, c) })

	pair := mustAdd(t, "  buenos días ", " good morning ")
	if pair.Source != "buenos días" || pair.Target != "good morning" {
		t.Fatalf("expected trimmed pair, got %q / %q", pair.Source, pair.Target)
	}
	tags := categories.For(context.Background(), pair.ID)
	if len(tags) != 1 || tags[0] != db.DefaultCategory {
		t.Fatalf("expected default category, got %q", tags)
	}
	if len(changes) != 1 || changes[0].Kind != categories.ChangePairAdded || changes[0].PairID != pair.ID {
		t.Fatalf("expected pair-added notification, got %+v", changes)
	}
}

func TestAddRejectsBlank(t *testing.T) {
	setup(t)
	cases := []struct{ source, target string }{
		{"", "hello"},
		{"hola", "   "},
		{"\t", "\n"},
	}
	for _, tc := range cases {
		if _, err := Add(context.Background(), tc.source, tc.target, nil); !errors.Is(err, ErrBlankText) {
			t.Fatalf("Add(%q, %q): expected ErrBlankText, got %v", tc.source, tc.target, err)
		}
	}
	if Count(context.Background()) != 0 {
		t.Fatal("blank pairs must not reach the store")
	}
}

func TestAddRejectsDuplicatesIgnoringCaseAndWhitespace(t *testing.T) {
	setup(t)
	mustAdd(t, "Good night", "Buenas noches")

	for _, variant := range [][2]string{
		{"Good night", "Buenas noches"},
		{"good NIGHT", "buenas noches"},
		{"  Good night  ", "Buenas noches "},
	} {
		if _, err := Add(context.Background(), variant[0], variant[1], nil); !errors.Is(err, ErrDuplicatePair) {
			t.Fatalf("Add(%q, %q): expected ErrDuplicatePair, got %v", variant[0], variant[1], err)
		}
	}
	if got := Count(context.Background()); got != 1 {
		t.Fatalf("expected 1 pair, got %d", got)
	}
}

func TestUpdateChecksDuplicatesExcludingItself(t *testing.T) {
	setup(t)
	first := mustAdd(t, "agua", "water")
	second := mustAdd(t, "leche", "milk")

	updated, err := Update(context.Background(), first.ID, "Agua", "Water ")
	if err != nil {
		t.Fatalf("re-casing a pair onto itself should succeed, got %v", err)
	}
	if updated.Source != "Agua" || updated.Target != "Water" {
		t.Fatalf("unexpected updated pair %+v", updated)
	}

	if _, err := Update(context.Background(), second.ID, "AGUA", "water"); !errors.Is(err, ErrDuplicatePair) {
		t.Fatalf("expected ErrDuplicatePair, got %v", err)
	}
	if _, err := Update(context.Background(), second.ID, "leche", " "); !errors.Is(err, ErrBlankText) {
		t.Fatalf("expected ErrBlankText, got %v", err)
	}
	if _, err := Update(context.Background(), 9999, "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCascadesToTagsAndProgress(t *testing.T) {
	setup(t)
	pair := mustAdd(t, "queso", "cheese", "Food", "Basics")
	if err := db.DB.Create(&db.LearningProgress{PairID: pair.ID, SuccessCount: 2, LastAttemptAt: time.Now()}).Error; err != nil {
		t.Fatalf("failed to seed progress: %v", err)
	}

	if err := Delete(context.Background(), pair.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	var tags, progress int64
	db.DB.Model(&db.CategoryTag{}).Count(&tags)
	db.DB.Model(&db.LearningProgress{}).Count(&progress)
	if tags != 0 || progress != 0 {
		t.Fatalf("expected cascade, got %d tags and %d progress rows", tags, progress)
	}
	if Get(context.Background(), pair.ID) != nil {
		t.Fatal("expected pair to be gone")
	}
	if err := Delete(context.Background(), pair.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestGetPreloadsTagsAndProgress(t *testing.T) {
	setup(t)
	pair := mustAdd(t, "casa", "house", "Home")
	db.DB.Create(&db.LearningProgress{PairID: pair.ID, FailureCount: 1, LastAttemptAt: time.Now()})

	got := Get(context.Background(), pair.ID)
	if got == nil {
		t.Fatal("expected pair")
	}
	if len(got.Tags) != 1 || got.Tags[0].Category != "Home" {
		t.Fatalf("expected Home tag, got %+v", got.Tags)
	}
	if got.Progress == nil || got.Progress.FailureCount != 1 {
		t.Fatalf("expected progress row, got %+v", got.Progress)
	}
}

func TestListNewestFirstAndSearch(t *testing.T) {
	setup(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	t.Cleanup(func() { now = func() time.Time { return time.Now().UTC() } })

	mustAdd(t, "manzana", "apple")
	mustAdd(t, "naranja", "orange")
	mustAdd(t, "100% zumo", "100% juice")

	list := List(context.Background())
	if len(list) != 3 || list[0].Source != "100% zumo" || list[2].Source != "manzana" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if recent := Recent(context.Background(), 2); len(recent) != 2 {
		t.Fatalf("expected 2 recent pairs, got %d", len(recent))
	}

	if got := Search(context.Background(), "APP"); len(got) != 1 || got[0].Target != "apple" {
		t.Fatalf("expected apple match, got %+v", got)
	}
	if got := Search(context.Background(), "0%"); len(got) != 1 {
		t.Fatalf("expected literal percent match, got %+v", got)
	}
	if got := Search(context.Background(), "a_"); len(got) != 0 {
		t.Fatalf("underscore must match literally, got %+v", got)
	}
	if got := Search(context.Background(), "  "); got != nil {
		t.Fatalf("blank query should return nil, got %+v", got)
	}
}

func TestReadsWithoutDatabaseReturnEmpty(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	db.DB = nil
	if List(context.Background()) != nil || Count(context.Background()) != 0 || Get(context.Background(), 1) != nil {
		t.Fatal("expected empty results without a database")
	}
}
