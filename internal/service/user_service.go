package service

import (
	"fmt"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/exercise"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/security"
	"github.com/GustasGrieze/Gramatikonas/internal/validation"
)

const (
	leaderboardSize = 10
	historyLimit    = 50
	userListLimit   = 100
)

// UserService owns user progress: scores, lesson counters, login streaks
// and the practice history.
type UserService struct {
	users   UserStore
	history PracticeStore
	now     Clock
}

func NewUserService(users UserStore, history PracticeStore) *UserService {
	return &UserService{
		users:   users,
		history: history,
		now:     time.Now,
	}
}

// CreateGuestUser builds a transient guest identity. Guests are never
// persisted and all progress recording for them is a no-op.
func (s *UserService) CreateGuestUser() *models.User {
	now := s.now()
	return &models.User{
		GoogleID:    security.GenerateGuestID(),
		DisplayName: "Guest",
		Role:        models.RoleGuest,
		LastLoginAt: now,
		CreatedAt:   now,
	}
}

// UpdateUserStats folds a finished exercise run into the user's lifetime
// counters and persists the user exactly once. Absent or guest users are
// a no-op.
func (s *UserService) UpdateUserStats(user *models.User, summary *exercise.Summary) error {
	if user == nil || user.IsGuest() || summary == nil {
		return nil
	}
	user.TotalLessonsCompleted += summary.TasksAnswered
	if summary.Score > user.HighScore {
		user.HighScore = summary.Score
	}
	if err := s.users.UpdateUser(user); err != nil {
		return fmt.Errorf("updating user stats: %w", err)
	}
	return nil
}

// UpdateUserHighScore raises the user's high score when the new score is
// strictly greater. Equal or lower scores do not touch the database.
func (s *UserService) UpdateUserHighScore(user *models.User, score int) error {
	if user == nil || user.IsGuest() {
		return nil
	}
	if score <= user.HighScore {
		return nil
	}
	user.HighScore = score
	if err := s.users.UpdateUser(user); err != nil {
		return fmt.Errorf("updating high score: %w", err)
	}
	return nil
}

// RecordLoginStreak updates the login streak counters based on the gap
// between the previous login and now. Consecutive calendar days extend
// the streak, a longer gap resets it to one, repeat logins on the same
// day leave it untouched. Dates are compared in UTC.
func (s *UserService) RecordLoginStreak(user *models.User) error {
	if user == nil || user.IsGuest() {
		return nil
	}
	now := s.now()
	today := utcDate(now)
	lastLogin := utcDate(user.LastLoginAt)

	switch {
	case today.Equal(lastLogin):
		// Already counted today.
	case today.Equal(lastLogin.AddDate(0, 0, 1)):
		user.CurrentStreak++
	case today.After(lastLogin):
		user.CurrentStreak = 1
	}
	if user.CurrentStreak > user.BestStreak {
		user.BestStreak = user.CurrentStreak
	}
	user.LastLoginAt = now

	if err := s.users.UpdateUser(user); err != nil {
		return fmt.Errorf("recording login streak: %w", err)
	}
	return nil
}

// RecordPracticeSession appends a completed session to the user's history
// and folds its totals into the lifetime aggregates.
func (s *UserService) RecordPracticeSession(user *models.User, session *models.PracticeSession) error {
	if session == nil {
		return validation.ValidationError{Field: "session", Message: "practice session is required"}
	}
	if user == nil || user.IsGuest() {
		return nil
	}
	if session.CompletedAt.IsZero() {
		session.CompletedAt = s.now()
	}
	if err := s.history.AppendSession(user.ID, session); err != nil {
		return fmt.Errorf("appending practice session: %w", err)
	}
	user.TotalStudyTime += session.Duration
	user.TotalAttempts += session.TotalQuestions
	user.CorrectAnswers += session.CorrectAnswers
	if err := s.users.UpdateUser(user); err != nil {
		return fmt.Errorf("updating practice totals: %w", err)
	}
	return nil
}

// GetPracticeHistory returns the user's most recent practice sessions.
func (s *UserService) GetPracticeHistory(userID int64) ([]models.PracticeSession, error) {
	return s.history.GetSessionsForUser(userID, historyLimit)
}

// PromoteToAdmin grants the admin role. Returns false when no such user
// exists.
func (s *UserService) PromoteToAdmin(userID int64) (bool, error) {
	return s.setRole(userID, models.RoleAdmin)
}

// DemoteFromAdmin reverts an admin to a regular registered user. Returns
// false when no such user exists.
func (s *UserService) DemoteFromAdmin(userID int64) (bool, error) {
	return s.setRole(userID, models.RoleRegistered)
}

func (s *UserService) setRole(userID int64, role models.UserRole) (bool, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return false, fmt.Errorf("loading user %d: %w", userID, err)
	}
	if user == nil {
		return false, nil
	}
	if user.Role == role {
		return true, nil
	}
	user.Role = role
	if err := s.users.UpdateUser(user); err != nil {
		return false, fmt.Errorf("updating role for user %d: %w", userID, err)
	}
	return true, nil
}

// ListUsers returns the most recently registered users, newest first.
func (s *UserService) ListUsers() ([]models.User, error) {
	return s.users.ListUsers(userListLimit)
}

// GetUser loads a user by ID, returning nil when not found.
func (s *UserService) GetUser(userID int64) (*models.User, error) {
	return s.users.GetUserByID(userID)
}

// TopByHighScore returns the high score leaderboard.
func (s *UserService) TopByHighScore() ([]models.User, error) {
	return s.users.TopByHighScore(leaderboardSize)
}

// TopByCurrentStreak returns the current streak leaderboard.
func (s *UserService) TopByCurrentStreak() ([]models.User, error) {
	return s.users.TopByCurrentStreak(leaderboardSize)
}

// TopByBestStreak returns the best streak leaderboard.
func (s *UserService) TopByBestStreak() ([]models.User, error) {
	return s.users.TopByBestStreak(leaderboardSize)
}

// TopByLessonsCompleted returns the lessons completed leaderboard.
func (s *UserService) TopByLessonsCompleted() ([]models.User, error) {
	return s.users.TopByLessonsCompleted(leaderboardSize)
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
