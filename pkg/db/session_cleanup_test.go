package db

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(SQLiteDSN("file:"+name+"?mode=memory&cache=shared")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
		DB = nil
	})
	return gdb
}

func TestCleanupExpiredSessions(t *testing.T) {
	gdb := openTestDB(t, "session_cleanup")
	if err := gdb.AutoMigrate(&LearningSession{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	DB = gdb

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	sessions := []LearningSession{
		{ChatID: 1, UserID: 1, LastActivityAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
		{ChatID: 2, UserID: 2, LastActivityAt: now, ExpiresAt: now.Add(24 * time.Hour)},
		{ChatID: 3, UserID: 3, Category: "Travel", LastActivityAt: now.Add(-24 * time.Hour), ExpiresAt: now},
	}
	if err := gdb.Create(&sessions).Error; err != nil {
		t.Fatalf("failed to seed sessions: %v", err)
	}

	deleted, err := CleanupExpiredSessions(now)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}

	var remaining []LearningSession
	if err := gdb.Find(&remaining).Error; err != nil {
		t.Fatalf("failed to load sessions: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ChatID != 2 {
		t.Fatalf("expected only chat 2 to remain, got %+v", remaining)
	}
}

func TestCleanupExpiredSessionsWithoutDB(t *testing.T) {
	DB = nil
	deleted, err := CleanupExpiredSessions(time.Now())
	if err != nil || deleted != 0 {
		t.Fatalf("expected no-op without database, got %d, %v", deleted, err)
	}
}
