package learning

import (
	"errors"
	"time"

	"github.com/smith3v/tg-phrasebook/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sessionTTL = 24 * time.Hour

// SetSessionTTL changes how long an idle persisted session survives.
func SetSessionTTL(ttl time.Duration) {
	if ttl > 0 {
		sessionTTL = ttl
	}
}

func LoadLearningSession(chatID, userID int64, now time.Time) (*db.LearningSession, error) {
	if db.DB == nil {
		return nil, nil
	}
	var session db.LearningSession
	err := db.DB.
		Where("chat_id = ? AND user_id = ? AND expires_at > ?", chatID, userID, now).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func UpsertLearningSession(session *db.LearningSession) error {
	if session == nil || db.DB == nil {
		return nil
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = time.Now().UTC()
	}
	session.ExpiresAt = session.LastActivityAt.Add(sessionTTL)

	return db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "chat_id"},
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"category",
			"current_pair_id",
			"last_pair_id",
			"current_token",
			"current_message_id",
			"revealed",
			"last_activity_at",
			"expires_at",
			"updated_at",
		}),
	}).Create(session).Error
}

func DeleteLearningSession(chatID, userID int64) error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&db.LearningSession{}).Error
}
