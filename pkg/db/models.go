package db

import "time"

const DefaultCategory = "Uncategorized"

type TranslationPair struct {
	ID        uint              `gorm:"primaryKey"`
	Source    string            `gorm:"not null"`
	Target    string            `gorm:"not null"`
	CreatedAt time.Time         `gorm:"not null;index"`
	Tags      []CategoryTag     `gorm:"foreignKey:PairID;constraint:OnDelete:CASCADE"`
	Progress  *LearningProgress `gorm:"foreignKey:PairID;constraint:OnDelete:CASCADE"`
}

func (TranslationPair) TableName() string {
	return "translation_pairs"
}

// LearningProgress exists only for pairs that have been drilled at least once.
type LearningProgress struct {
	PairID        uint      `gorm:"primaryKey;autoIncrement:false"`
	SuccessCount  int       `gorm:"not null;default:0"`
	FailureCount  int       `gorm:"not null;default:0"`
	LastAttemptAt time.Time `gorm:"not null;index"`
}

func (LearningProgress) TableName() string {
	return "learning_progress"
}

type CategoryTag struct {
	PairID   uint   `gorm:"primaryKey;autoIncrement:false"`
	Category string `gorm:"primaryKey;index"`
}

func (CategoryTag) TableName() string {
	return "category_tags"
}

// LearningSession keeps the drill state of one chat between restarts.
type LearningSession struct {
	ID               uint      `gorm:"primaryKey"`
	ChatID           int64     `gorm:"index;uniqueIndex:idx_learning_session_user_chat"`
	UserID           int64     `gorm:"index;uniqueIndex:idx_learning_session_user_chat"`
	Category         string    `gorm:"not null;default:''"`
	CurrentPairID    uint      `gorm:"not null;default:0"`
	LastPairID       uint      `gorm:"not null;default:0"`
	CurrentToken     string    `gorm:"not null;default:''"`
	CurrentMessageID int       `gorm:"not null;default:0"`
	Revealed         bool      `gorm:"not null;default:false"`
	LastActivityAt   time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"not null;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (LearningSession) TableName() string {
	return "learning_sessions"
}

func AllModels() []interface{} {
	return []interface{}{
		&TranslationPair{},
		&LearningProgress{},
		&CategoryTag{},
		&LearningSession{},
	}
}
