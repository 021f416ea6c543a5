package categories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrBlankCategory = errors.New("category name is blank")
	ErrSameCategory  = errors.New("categories to merge must differ")
)

type Summary struct {
	Name  string
	Pairs int64
}

// Normalize trims names, drops blanks and exact duplicates, and falls back to
// db.DefaultCategory when nothing is left.
func Normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		out = append(out, db.DefaultCategory)
	}
	return out
}

// All returns every distinct category name, sorted.
func All(ctx context.Context) []string {
	if db.DB == nil {
		return nil
	}
	var names []string
	err := db.DB.WithContext(ctx).
		Model(&db.CategoryTag{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &names).Error
	if err != nil {
		logger.Error("failed to list categories", "error", err)
		return nil
	}
	return dedupeSorted(names)
}

func dedupeSorted(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func Summaries(ctx context.Context) []Summary {
	if db.DB == nil {
		return nil
	}
	var rows []Summary
	err := db.DB.WithContext(ctx).
		Model(&db.CategoryTag{}).
		Select("category AS name, COUNT(*) AS pairs").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		logger.Error("failed to summarize categories", "error", err)
		return nil
	}
	return rows
}

func For(ctx context.Context, pairID uint) []string {
	if db.DB == nil || pairID == 0 {
		return nil
	}
	var names []string
	err := db.DB.WithContext(ctx).
		Model(&db.CategoryTag{}).
		Where("pair_id = ?", pairID).
		Order("category ASC").
		Pluck("category", &names).Error
	if err != nil {
		logger.Error("failed to load pair categories", "pair_id", pairID, "error", err)
		return nil
	}
	return names
}

// ReplaceTags deletes every tag of pairID and inserts names in their place.
// It runs on tx so callers can fold it into a wider transaction.
func ReplaceTags(tx *gorm.DB, pairID uint, names []string) ([]string, error) {
	names = Normalize(names)
	if err := tx.Where("pair_id = ?", pairID).Delete(&db.CategoryTag{}).Error; err != nil {
		return nil, err
	}
	tags := make([]db.CategoryTag, 0, len(names))
	for _, name := range names {
		tags = append(tags, db.CategoryTag{PairID: pairID, Category: name})
	}
	if err := tx.Create(&tags).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func Set(ctx context.Context, pairID uint, names []string) error {
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	var applied []string
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = ReplaceTags(tx, pairID, names)
		return err
	})
	if err != nil {
		logger.Error("failed to replace pair categories", "pair_id", pairID, "error", err)
		return fmt.Errorf("set categories for pair %d: %w", pairID, err)
	}
	DefaultFeed.Notify(Change{Kind: ChangeTagsReplaced, PairID: pairID, Categories: applied})
	return nil
}

// Rename moves every tag named oldName to newName. Pairs that already carry
// newName keep a single row, so a rename onto an existing category merges
// the two.
func Rename(ctx context.Context, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return ErrBlankCategory
	}
	if oldName == newName {
		return nil
	}
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := copyTags(tx, []string{oldName}, newName); err != nil {
			return err
		}
		return tx.Where("category = ?", oldName).Delete(&db.CategoryTag{}).Error
	})
	if err != nil {
		logger.Error("failed to rename category", "from", oldName, "to", newName, "error", err)
		return fmt.Errorf("rename category %q: %w", oldName, err)
	}
	DefaultFeed.Notify(Change{Kind: ChangeRenamed, Categories: []string{oldName, newName}})
	return nil
}

// Remove deletes every tag row named name. Pairs left without tags stay
// untagged.
func Remove(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankCategory
	}
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	if err := db.DB.WithContext(ctx).Where("category = ?", name).Delete(&db.CategoryTag{}).Error; err != nil {
		logger.Error("failed to remove category", "category", name, "error", err)
		return fmt.Errorf("remove category %q: %w", name, err)
	}
	DefaultFeed.Notify(Change{Kind: ChangeRemoved, Categories: []string{name}})
	return nil
}

// Merge tags every pair carrying a or b with merged, then drops a and b, all
// in one transaction.
func Merge(ctx context.Context, a, b, merged string) error {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	merged = strings.TrimSpace(merged)
	if a == "" || b == "" || merged == "" {
		return ErrBlankCategory
	}
	if a == b {
		return ErrSameCategory
	}
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := copyTags(tx, []string{a, b}, merged); err != nil {
			return err
		}
		for _, name := range []string{a, b} {
			if name == merged {
				continue
			}
			if err := tx.Where("category = ?", name).Delete(&db.CategoryTag{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to merge categories", "a", a, "b", b, "merged", merged, "error", err)
		return fmt.Errorf("merge categories %q and %q: %w", a, b, err)
	}
	DefaultFeed.Notify(Change{Kind: ChangeMerged, Categories: []string{a, b, merged}})
	return nil
}

func copyTags(tx *gorm.DB, from []string, to string) error {
	return tx.Exec(`
INSERT INTO category_tags (pair_id, category)
SELECT DISTINCT pair_id, ? FROM category_tags WHERE category IN ?
ON CONFLICT DO NOTHING
`, to, from).Error
}
