package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/gorm"
)

type Progress struct {
	Success int64
	Total   int64
}

func (p Progress) Empty() bool {
	return p.Total == 0
}

// Percent is Success as a share of Total, rounded down.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(p.Success * 100 / p.Total)
}

type PairStat struct {
	PairID       uint
	Source       string
	Target       string
	SuccessCount int
	FailureCount int
}

// RecordResult creates or increments the progress row of pairID. Concurrent
// results for the same pair are last-write-wins.
func RecordResult(ctx context.Context, pairID uint, success bool, at time.Time) error {
	if db.DB == nil {
		return gorm.ErrInvalidDB
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	tx := db.DB.WithContext(ctx)
	var progress db.LearningProgress
	err := tx.Where("pair_id = ?", pairID).First(&progress).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		progress = db.LearningProgress{PairID: pairID}
	case err != nil:
		logger.Error("failed to load progress", "pair_id", pairID, "error", err)
		return fmt.Errorf("load progress for pair %d: %w", pairID, err)
	}
	if success {
		progress.SuccessCount++
	} else {
		progress.FailureCount++
	}
	progress.LastAttemptAt = at
	if err := tx.Save(&progress).Error; err != nil {
		logger.Error("failed to save progress", "pair_id", pairID, "error", err)
		return fmt.Errorf("save progress for pair %d: %w", pairID, err)
	}
	return nil
}

// Aggregate counts the pairs tagged category and how many of them have been
// answered correctly at least once. A blank category has no progress to show
// and yields zero values.
func Aggregate(ctx context.Context, category string) Progress {
	name := strings.ToLower(strings.TrimSpace(category))
	if name == "" || db.DB == nil {
		return Progress{}
	}
	var result Progress
	tx := db.DB.WithContext(ctx)
	err := tx.Table("translation_pairs").
		Where(inCategory, name).
		Count(&result.Total).Error
	if err != nil {
		logger.Error("failed to count category pairs", "category", category, "error", err)
		return Progress{}
	}
	err = tx.Table("translation_pairs").
		Joins("JOIN learning_progress ON learning_progress.pair_id = translation_pairs.id").
		Where("learning_progress.success_count > 0").
		Where(inCategory, name).
		Count(&result.Success).Error
	if err != nil {
		logger.Error("failed to count successful pairs", "category", category, "error", err)
		return Progress{}
	}
	return result
}

// ResetProgress deletes the progress row of every pair tagged category, one
// pair at a time. The first failure stops the reset; rows already deleted
// stay deleted.
func ResetProgress(ctx context.Context, category string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(category))
	if name == "" {
		return 0, errors.New("category is required")
	}
	if db.DB == nil {
		return 0, gorm.ErrInvalidDB
	}
	var ids []uint
	err := db.DB.WithContext(ctx).
		Table("translation_pairs").
		Where(inCategory, name).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		logger.Error("failed to list pairs for reset", "category", category, "error", err)
		return 0, fmt.Errorf("list pairs in %q: %w", category, err)
	}
	reset := 0
	for _, id := range ids {
		if err := deleteProgress(ctx, id); err != nil {
			logger.Error("failed to reset progress", "category", category, "pair_id", id, "reset", reset, "error", err)
			return reset, fmt.Errorf("reset progress for pair %d: %w", id, err)
		}
		reset++
	}
	return reset, nil
}

var deleteProgress = func(ctx context.Context, pairID uint) error {
	return db.DB.WithContext(ctx).Where("pair_id = ?", pairID).Delete(&db.LearningProgress{}).Error
}

func MostSuccessful(ctx context.Context, limit int) []PairStat {
	return rankedStats(ctx, "learning_progress.success_count DESC", limit)
}

func MostDifficult(ctx context.Context, limit int) []PairStat {
	return rankedStats(ctx, "learning_progress.failure_count DESC", limit)
}

func rankedStats(ctx context.Context, order string, limit int) []PairStat {
	if db.DB == nil {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}
	var stats []PairStat
	err := db.DB.WithContext(ctx).
		Table("learning_progress").
		Select("translation_pairs.id AS pair_id, translation_pairs.source, translation_pairs.target, learning_progress.success_count, learning_progress.failure_count").
		Joins("JOIN translation_pairs ON translation_pairs.id = learning_progress.pair_id").
		Order(order).
		Order("translation_pairs.id ASC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		logger.Error("failed to rank progress", "order", order, "error", err)
		return nil
	}
	return stats
}
