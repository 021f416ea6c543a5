package db

import (
	"context"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/logger"
)

const SessionCleanupInterval = time.Hour

func CleanupExpiredSessions(now time.Time) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	res := DB.Where("expires_at <= ?", now).Delete(&LearningSession{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := CleanupExpiredSessions(time.Now().UTC())
			if err != nil {
				logger.Error("failed to cleanup expired learning sessions", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Debug("removed expired learning sessions", "count", deleted)
			}
		}
	}
}
