package phrases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/categories"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrBlankText     = errors.New("source and target must not be blank")
	ErrDuplicatePair = errors.New("translation pair already exists")
	ErrNotFound      = errors.New("translation pair not found")
)

const DefaultListLimit = 50

var now = func() time.Time { return time.Now().UTC() }

// Validate trims both sides and rejects a pair with either side blank.
func Validate(source, target string) (string, string, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return "", "", ErrBlankText
	}
	return source, target, nil
}

// IsDuplicate reports whether a pair equal to (source, target) ignoring case
// and surrounding whitespace exists, other than excludeID.
func IsDuplicate(tx *gorm.DB, source, target string, excludeID uint) (bool, error) {
	query := tx.Model(&db.TranslationPair{}).
		Where("LOWER(TRIM(source)) = ? AND LOWER(TRIM(target)) = ?",
			strings.ToLower(strings.TrimSpace(source)),
			strings.ToLower(strings.TrimSpace(target)))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsExact reports whether a pair with exactly this source and target is
// stored. Import uses it to skip rows it has already seen.
func ExistsExact(tx *gorm.DB, source, target string) (bool, error) {
	var count int64
	err := tx.Model(&db.TranslationPair{}).
		Where("source = ? AND target = ?", source, target).
		Count(&count).Error
	return count > 0, err
}

// Insert stores a pair and its tags on tx without any checks.
func Insert(tx *gorm.DB, source, target string, names []string) (*db.TranslationPair, error) {
	pair := db.TranslationPair{Source: source, Target: target, CreatedAt: now()}
	if err := tx.Omit("Tags", "Progress").Create(&pair).Error; err != nil {
		return nil, err
	}
	applied, err := categories.ReplaceTags(tx, pair.ID, names)
	if err != nil {
		return nil, err
	}
	for _, name := range applied {
		pair.Tags = append(pair.Tags, db.CategoryTag{PairID: pair.ID, Category: name})
	}
	return &pair, nil
}

// Add validates and saves a new pair. An empty category set stores the pair
// under db.DefaultCategory.
func Add(ctx context.Context, source, target string, names []string) (*db.TranslationPair, error) {
	source, target, err := Validate(source, target)
	if err != nil {
		return nil, err
	}
	if db.DB == nil {
		return nil, gorm.ErrInvalidDB
	}
	var pair *db.TranslationPair
	err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := IsDuplicate(tx, source, target, 0)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicatePair
		}
		pair, err = Insert(tx, source, target, names)
		return err
	})
	if errors.Is(err, ErrDuplicatePair) {
		return nil, err
	}
	if err != nil {
		logger.Error("failed to save translation pair", "source", source, "error", err)
		return nil, fmt.Errorf("save translation pair: %w", err)
	}
	categories.DefaultFeed.Notify(categories.Change{
		Kind:       categories.ChangePairAdded,
		PairID:     pair.ID,
		Categories: tagNames(pair.Tags),
	})
	return pair, nil
}

func Update(ctx context.Context, id uint, source, target string) (*db.TranslationPair, error) {
	source, target, err := Validate(source, target)
	if err != nil {
		return nil, err
	}
	if db.DB == nil {
		return nil, gorm.ErrInvalidDB
	}
	var pair db.TranslationPair
	err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&pair, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		dup, err := IsDuplicate(tx, source, target, id)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicatePair
		}
		pair.Source = source
		pair.Target = target
		return tx.Model(&pair).Updates(map[string]interface{}{
			"source": source,
			"target": target,
		}).Error
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicatePair) {
		return nil, err
	}
	if err != nil {
		logger.Error("failed to update translation pair", "pair_id", id, "error", err)
		return nil, fmt.Errorf("update translation pair %d: %w", id, err)
	}
	return &pair, nil
}

// Delete removes a pair together with its tags and progress row.
func Delete(ctx context.Context, id uint) error {
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pair_id = ?", id).Delete(&db.CategoryTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pair_id = ?", id).Delete(&db.LearningProgress{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&db.TranslationPair{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		logger.Error("failed to delete translation pair", "pair_id", id, "error", err)
		return fmt.Errorf("delete translation pair %d: %w", id, err)
	}
	categories.DefaultFeed.Notify(categories.Change{Kind: categories.ChangePairDeleted, PairID: id})
	return nil
}

func Get(ctx context.Context, id uint) *db.TranslationPair {
	if db.DB == nil || id == 0 {
		return nil
	}
	var pair db.TranslationPair
	err := db.DB.WithContext(ctx).Preload("Tags").Preload("Progress").First(&pair, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("failed to load translation pair", "pair_id", id, "error", err)
		}
		return nil
	}
	return &pair
}

// List returns every pair, newest first.
func List(ctx context.Context) []db.TranslationPair {
	return find(ctx, 0, "")
}

func Recent(ctx context.Context, limit int) []db.TranslationPair {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return find(ctx, limit, "")
}

// Search matches query as a case-insensitive substring of either side.
func Search(ctx context.Context, query string) []db.TranslationPair {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return find(ctx, DefaultListLimit, query)
}

func find(ctx context.Context, limit int, query string) []db.TranslationPair {
	if db.DB == nil {
		return nil
	}
	tx := db.DB.WithContext(ctx).Preload("Tags").Order("created_at DESC, id DESC")
	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		tx = tx.Where(`LOWER(source) LIKE ? ESCAPE '\' OR LOWER(target) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var pairs []db.TranslationPair
	if err := tx.Find(&pairs).Error; err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("failed to list translation pairs", "query", query, "error", err)
		}
		return nil
	}
	return pairs
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func Count(ctx context.Context) int64 {
	if db.DB == nil {
		return 0
	}
	var count int64
	if err := db.DB.WithContext(ctx).Model(&db.TranslationPair{}).Count(&count).Error; err != nil {
		logger.Error("failed to count translation pairs", "error", err)
		return 0
	}
	return count
}

func tagNames(tags []db.CategoryTag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Category)
	}
	return names
}
