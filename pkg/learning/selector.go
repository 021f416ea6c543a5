package learning

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/gorm"
)

// DefaultCutoff is how long a drilled pair rests before it is preferred again.
const DefaultCutoff = 24 * time.Hour

type candidate struct {
	ID            uint
	LastAttemptAt *time.Time
}

type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{rnd: rand.New(src)}
}

var DefaultSelector = NewSelector(nil)

// SelectNext picks the next pair to drill. An empty category means all pairs
// and excludeID 0 means nothing to avoid. Pairs never attempted, or last
// attempted before cutoff, are preferred; when none qualify any candidate may
// be returned. excludeID is only returned when it is the sole candidate.
// A nil result means the filter matches no pairs, which includes store
// failures.
func (s *Selector) SelectNext(ctx context.Context, category string, excludeID uint, cutoff time.Time) *db.TranslationPair {
	candidates, err := loadCandidates(ctx, category)
	if err != nil {
		logger.Error("failed to load drill candidates", "category", category, "error", err)
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	all := make([]uint, 0, len(candidates))
	stale := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, c.ID)
		if c.LastAttemptAt == nil || c.LastAttemptAt.Before(cutoff) {
			stale = append(stale, c.ID)
		}
	}

	pool := stale
	if len(pool) == 0 {
		pool = all
	}
	pick := s.pick(pool)
	if excludeID != 0 && pick == excludeID && len(all) > 1 {
		alternatives := without(pool, excludeID)
		if len(alternatives) == 0 {
			alternatives = without(all, excludeID)
		}
		pick = s.pick(alternatives)
	}

	var pair db.TranslationPair
	err = db.DB.WithContext(ctx).Preload("Tags").Preload("Progress").First(&pair, pick).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("failed to load selected pair", "pair_id", pick, "error", err)
		}
		return nil
	}
	return &pair
}

func (s *Selector) pick(ids []uint) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ids[s.rnd.Intn(len(ids))]
}

func without(ids []uint, exclude uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

// loadCandidates returns the pairs matching category (case-insensitively)
// with their last attempt time, or every pair when category is blank.
func loadCandidates(ctx context.Context, category string) ([]candidate, error) {
	if db.DB == nil {
		return nil, gorm.ErrInvalidDB
	}
	query := db.DB.WithContext(ctx).
		Table("translation_pairs").
		Select("translation_pairs.id AS id, learning_progress.last_attempt_at AS last_attempt_at").
		Joins("LEFT JOIN learning_progress ON learning_progress.pair_id = translation_pairs.id").
		Order("translation_pairs.id ASC")
	if name := strings.TrimSpace(category); name != "" {
		query = query.Where(inCategory, strings.ToLower(name))
	}
	var candidates []candidate
	if err := query.Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

const inCategory = `EXISTS (
SELECT 1 FROM category_tags
WHERE category_tags.pair_id = translation_pairs.id
AND LOWER(category_tags.category) = ?
)`
