package importexport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/internal/testutil"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/phrases"
)

func setup(t *testing.T) {
	t.Helper()
	testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	categories.ResetDefaultFeed()
}

func seedPairs(t *testing.T, rows ...Row) {
	t.Helper()
	for _, row := range rows {
		if _, err := phrases.Add(context.Background(), row.Source, row.Target, []string{"Seed"}); err != nil {
			t.Fatalf("failed to seed pair: %v", err)
		}
	}
}

func storedRows(t *testing.T) []Row {
	t.Helper()
	var pairs []db.TranslationPair
	if err := db.DB.Order("id ASC").Find(&pairs).Error; err != nil {
		t.Fatalf("failed to load pairs: %v", err)
	}
	rows := make([]Row, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, Row{Source: pair.Source, Target: pair.Target})
	}
	return rows
}

var sampleRows = []Row{
	{Source: "Buenos días", Target: "Good morning"},
	{Source: `Dijo "hola"`, Target: `He said "hello"`},
	{Source: "uno, dos", Target: "one, two"},
	{Source: "x", Target: `y","z`},
	{Source: "línea uno\nlínea dos", Target: "line one\n\nline two"},
}

func TestBuildExportCSVQuotesEveryField(t *testing.T) {
	pairs := []db.TranslationPair{
		{ID: 1, Source: "hola", Target: "hello"},
		{ID: 2, Source: `a "b"`, Target: "c"},
	}
	got := string(BuildExportCSV(pairs))
	want := "Original,Translated\n\"hola\",\"hello\"\n\"a \"\"b\"\"\",\"c\"\n"
	if got != want {
		t.Fatalf("unexpected CSV:\n%q\nwant\n%q", got, want)
	}
}

func TestParseCSV(t *testing.T) {
	data := strings.Join([]string{
		"\ufeffOriginal,Translated\r",
		`"hola","hello"` + "\r",
		`"comillas ""dobles""","double ""quotes"""`,
		`not quoted,at all`,
		`"","blank source"`,
		"",
		`"adiós","bye"`,
	}, "\n")

	rows, malformed, err := ParseCSV([]byte(data))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	want := []Row{
		{Source: "hola", Target: "hello"},
		{Source: `comillas "dobles"`, Target: `double "quotes"`},
		{Source: "adiós", Target: "bye"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
	if malformed != 2 {
		t.Fatalf("expected 2 malformed lines, got %d", malformed)
	}
}

func TestParseCSVQuotedSeparatorsAndMultilineFields(t *testing.T) {
	data := "Original,Translated\r\n" +
		`"x","y"",""z"` + "\r\n" +
		"\"primera\nsegunda\",\"first\nsecond\"\n" +
		"\n" +
		`"sin cerrar","open` + "\n"

	rows, malformed, err := ParseCSV([]byte(data))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	want := []Row{
		{Source: "x", Target: `y","z`},
		{Source: "primera\nsegunda", Target: "first\nsecond"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
	if malformed != 1 {
		t.Fatalf("expected the unterminated record to be malformed, got %d", malformed)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrEmptyFile},
		{"bom only", "\ufeff \n", ErrEmptyFile},
		{"missing header", "\"hola\",\"hello\"\n", ErrMissingHeader},
		{"wrong header", "Source,Target\n", ErrMissingHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseCSV([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	setup(t)
	seedPairs(t, sampleRows...)

	data, count, err := Export(context.Background(), FormatCSV)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if count != len(sampleRows) {
		t.Fatalf("expected %d exported pairs, got %d", len(sampleRows), count)
	}

	setup(t)
	result, err := Import(context.Background(), FormatCSV, data)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Imported != len(sampleRows) || result.Skipped != 0 {
		t.Fatalf("unexpected first import result %+v", result)
	}
	got := storedRows(t)
	for i := range sampleRows {
		if got[i] != sampleRows[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, sampleRows[i], got[i])
		}
	}

	result, err = Import(context.Background(), FormatCSV, data)
	if err != nil {
		t.Fatalf("second Import returned error: %v", err)
	}
	if result.Imported != 0 || result.Skipped != len(sampleRows) {
		t.Fatalf("expected 0 imported and %d skipped, got %+v", len(sampleRows), result)
	}
}

func TestImportTagsUncategorizedAndNotifies(t *testing.T) {
	setup(t)
	var changes []categories.Change
	categories.DefaultFeed.Subscribe(func(c categories.Change) { changes = append(changes, c) })

	result, err := ImportRows(context.Background(), []Row{
		{Source: "gato", Target: "cat"},
		{Source: "gato", Target: "cat"},
	})
	if err != nil {
		t.Fatalf("ImportRows returned error: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 1 {
		t.Fatalf("expected in-file duplicate to be skipped, got %+v", result)
	}

	var tags []db.CategoryTag
	db.DB.Find(&tags)
	if len(tags) != 1 || tags[0].Category != db.DefaultCategory {
		t.Fatalf("expected a single %s tag, got %+v", db.DefaultCategory, tags)
	}
	if len(changes) != 1 || changes[0].Kind != categories.ChangeImported {
		t.Fatalf("expected one import notification, got %+v", changes)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	setup(t)
	seedPairs(t, sampleRows...)

	data, _, err := Export(context.Background(), FormatXLSX)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	rows, malformed, err := ParseXLSX(data)
	if err != nil {
		t.Fatalf("ParseXLSX returned error: %v", err)
	}
	if malformed != 0 || len(rows) != len(sampleRows) {
		t.Fatalf("expected %d rows, got %d (%d malformed)", len(sampleRows), len(rows), malformed)
	}
	for i := range sampleRows {
		if rows[i] != sampleRows[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, sampleRows[i], rows[i])
		}
	}

	result, err := Import(context.Background(), FormatXLSX, data)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.Imported != 0 || result.Skipped != len(sampleRows) {
		t.Fatalf("expected every row to be skipped, got %+v", result)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name string
		want Format
		err  error
	}{
		{"export.csv", FormatCSV, nil},
		{"Phrases.XLSX", FormatXLSX, nil},
		{"notes.txt", "", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.name)
		if got != tt.want || !errors.Is(err, tt.err) {
			t.Fatalf("FormatFor(%q) = %q, %v", tt.name, got, err)
		}
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC)
	if got := ExportFilename(now, FormatCSV); got != "phrasebook-20250307.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
	if got := ExportFilename(now, FormatXLSX); got != "phrasebook-20250307.xlsx" {
		t.Fatalf("unexpected filename %q", got)
	}
}
