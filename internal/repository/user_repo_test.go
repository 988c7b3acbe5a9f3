package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/database"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDeleteExpiredSessions(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user := &models.User{
		Email:       "sessions@example.com",
		DisplayName: "Sessions",
		Role:        models.RoleRegistered,
		LastLoginAt: time.Now(),
	}
	if err := repo.CreateUser(user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	now := time.Now()
	sessions := []*models.AuthSession{
		{ID: "expired-1", UserID: user.ID, ExpiresAt: now.Add(-2 * time.Hour)},
		{ID: "expired-2", UserID: user.ID, ExpiresAt: now.Add(-time.Minute)},
		{ID: "live", UserID: user.ID, ExpiresAt: now.Add(time.Hour)},
	}
	for _, s := range sessions {
		if err := repo.CreateSession(s); err != nil {
			t.Fatalf("CreateSession(%s) error = %v", s.ID, err)
		}
	}

	deleted, err := repo.DeleteExpiredSessions()
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("DeleteExpiredSessions() = %d, want 2", deleted)
	}

	live, err := repo.GetSession("live")
	if err != nil {
		t.Fatalf("GetSession(live) error = %v", err)
	}
	if live == nil {
		t.Error("live session was deleted")
	}

	gone, err := repo.GetSession("expired-1")
	if err != nil {
		t.Fatalf("GetSession(expired-1) error = %v", err)
	}
	if gone != nil {
		t.Error("expired session is still present")
	}
}
