package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

var learningTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type cli struct {
	t      *testing.T
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
  "database": {"driver": "sqlite", "path": %q},
  "logging": {"level": "error", "gorm_level": "silent"}
}`, filepath.Join(dir, "phrasebook.db"))
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	previous := config.AppConfig
	categories.ResetDefaultFeed()
	t.Cleanup(func() {
		if db.DB != nil {
			if sqlDB, err := db.DB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		db.DB = nil
		config.AppConfig = previous
		logger.SetLogLevel(logger.INFO)
	})
	return &cli{t: t, dir: dir, config: path}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	if db.DB != nil {
		if sqlDB, err := db.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", c.config, "--env", filepath.Join(c.dir, "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("%s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestPairsAddListDelete(t *testing.T) {
	c := newCLI(t)

	if out := c.mustRun("pairs", "add", "hola", "hello", "--category", "Greetings"); out != "#1 hola → hello [Greetings]\n" {
		t.Fatalf("unexpected add output %q", out)
	}
	c.mustRun("pairs", "add", "adiós", "goodbye")

	out := c.mustRun("pairs", "list")
	if out != "#2 adiós → goodbye [Uncategorized]\n#1 hola → hello [Greetings]\n" {
		t.Fatalf("unexpected list output %q", out)
	}
	if out := c.mustRun("pairs", "list", "--search", "BYE"); out != "#2 adiós → goodbye [Uncategorized]\n" {
		t.Fatalf("unexpected search output %q", out)
	}

	if _, err := c.run("pairs", "add", "HOLA", "Hello"); err == nil {
		t.Fatal("expected duplicate pair to be rejected")
	}

	c.mustRun("pairs", "delete", "#1")
	if out := c.mustRun("pairs", "list"); out != "#2 adiós → goodbye [Uncategorized]\n" {
		t.Fatalf("unexpected list after delete %q", out)
	}
	if _, err := c.run("pairs", "delete", "abc"); err == nil {
		t.Fatal("expected invalid id to be rejected")
	}
}

func TestCategoriesCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("pairs", "add", "pan", "bread", "--category", "Food")
	c.mustRun("pairs", "add", "agua", "water", "--category", "Drinks")
	c.mustRun("pairs", "add", "tren", "train", "--category", "Travel")

	c.mustRun("categories", "merge", "Food", "Drinks", "Kitchen")
	c.mustRun("categories", "rename", "Travel", "Trips")

	out := c.mustRun("categories", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Kitchen") || !strings.HasSuffix(lines[0], "2") || !strings.HasPrefix(lines[1], "Trips") {
		t.Fatalf("unexpected categories %q", out)
	}

	c.mustRun("pairs", "tag", "3", "Kitchen", "Trips")
	c.mustRun("categories", "remove", "Trips")
	if out := c.mustRun("categories", "list"); !strings.HasPrefix(out, "Kitchen") || strings.Contains(out, "Trips") {
		t.Fatalf("unexpected categories after remove %q", out)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	c := newCLI(t)
	source := filepath.Join(c.dir, "in.csv")
	data := "Original,Translated\n\"hola\",\"hello\"\n\"gracias\",\"thank you\"\nnot a row\n"
	if err := os.WriteFile(source, []byte(data), 0o600); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	if out := c.mustRun("import", source); out != "Imported 2 pairs, skipped 0, malformed 1\n" {
		t.Fatalf("unexpected import output %q", out)
	}
	if out := c.mustRun("import", source); out != "Imported 0 pairs, skipped 2, malformed 1\n" {
		t.Fatalf("unexpected second import output %q", out)
	}

	target := filepath.Join(c.dir, "out.xlsx")
	if out := c.mustRun("export", target); out != fmt.Sprintf("Exported 2 pairs to %s\n", target) {
		t.Fatalf("unexpected export output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected export file: %v", err)
	}

	if _, err := c.run("import", filepath.Join(c.dir, "words.txt")); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestProgressAndReset(t *testing.T) {
	c := newCLI(t)
	c.mustRun("pairs", "add", "uno", "one", "--category", "Numbers")
	c.mustRun("pairs", "add", "dos", "two", "--category", "Numbers")

	if err := learning.RecordResult(context.Background(), 1, true, learningTime); err != nil {
		t.Fatalf("failed to record result: %v", err)
	}
	if err := learning.RecordResult(context.Background(), 2, false, learningTime); err != nil {
		t.Fatalf("failed to record result: %v", err)
	}

	out := c.mustRun("progress", "Numbers", "--difficult", "1", "--best", "1")
	if !strings.Contains(out, "1/2 (50%)") || !strings.Contains(out, "Most difficult:\n#2 dos → two (missed 1, knew 0)") {
		t.Fatalf("unexpected progress output %q", out)
	}
	if !strings.HasSuffix(out, "Best known:\n#1 uno → one (missed 0, knew 1)\n") {
		t.Fatalf("expected best known pairs in %q", out)
	}

	if out := c.mustRun("reset", "Numbers"); out != "Reset 2 pairs in Numbers\n" {
		t.Fatalf("unexpected reset output %q", out)
	}
	if out := c.mustRun("progress"); !strings.Contains(out, "0/2 (0%)") {
		t.Fatalf("unexpected progress after reset %q", out)
	}
}

func TestServeRequiresToken(t *testing.T) {
	c := newCLI(t)
	t.Setenv("PHRASEBOOK_TELEGRAM_TOKEN", "")

	if _, err := c.run("serve"); !errors.Is(err, errMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestExplicitMissingConfigFails(t *testing.T) {
	c := newCLI(t)
	c.config = filepath.Join(c.dir, "absent.json")

	if _, err := c.run("pairs", "list"); err == nil {
		t.Fatal("expected an explicit missing config file to fail")
	}
}

func TestBuildServicesWithoutTTS(t *testing.T) {
	cfg := config.Defaults()
	services := buildServices(context.Background(), cfg)
	if services.Translator == nil || services.Translator.HasFallback() {
		t.Fatal("expected a dictionary-only translator")
	}
	if _, err := services.Speaker.Speak(context.Background(), "hola"); err == nil {
		t.Fatal("expected speech to be disabled")
	}
}
