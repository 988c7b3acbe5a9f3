package service

import (
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

// UserStore is the persistence surface the user-facing services need.
// *repository.UserRepository satisfies it.
type UserStore interface {
	CreateUser(user *models.User) error
	GetUserByID(id int64) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByGoogleID(googleID string) (*models.User, error)
	UpdateUser(user *models.User) error
	ListUsers(limit int) ([]models.User, error)
	TopByHighScore(limit int) ([]models.User, error)
	TopByCurrentStreak(limit int) ([]models.User, error)
	TopByBestStreak(limit int) ([]models.User, error)
	TopByLessonsCompleted(limit int) ([]models.User, error)
}

// SessionStore persists login sessions and password reset tokens.
type SessionStore interface {
	CreateSession(session *models.AuthSession) error
	GetSession(id string) (*models.AuthSession, error)
	DeleteSession(id string) error
	DeleteExpiredSessions() (int64, error)
	CreateResetToken(token *models.PasswordResetToken) error
	GetResetToken(token string) (*models.PasswordResetToken, error)
	MarkResetTokenUsed(token string) error
}

// TaskStore persists exercise tasks. *repository.TaskRepository satisfies it.
type TaskStore interface {
	CreateTasks(tasks []models.Task) error
	GetTasksByTopic(kind models.TaskKind, topic string) ([]models.Task, error)
	GetTasksByKind(kind models.TaskKind) ([]models.Task, error)
	GetTopics(kind models.TaskKind) ([]string, error)
	DeleteTask(id int64) (bool, error)
}

// PracticeStore records completed practice sessions.
type PracticeStore interface {
	AppendSession(userID int64, session *models.PracticeSession) error
	GetSessionsForUser(userID int64, limit int) ([]models.PracticeSession, error)
}

// Clock lets tests control time-sensitive logic such as login streaks.
type Clock func() time.Time
