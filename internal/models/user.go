package models

import "time"

// UserRole controls what a user may do
type UserRole string

const (
	RoleGuest      UserRole = "guest"
	RoleRegistered UserRole = "registered"
	RoleAdmin      UserRole = "admin"
)

// User represents an account and its accumulated learning progress.
// Guest users are never persisted; their ID stays zero.
type User struct {
	ID           int64
	GoogleID     string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         UserRole

	HighScore             int
	TotalLessonsCompleted int
	TotalStudyTime        time.Duration
	TotalAttempts         int
	CorrectAnswers        int
	CurrentStreak         int
	BestStreak            int
	LastLoginAt           time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user has admin privileges
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsGuest reports whether the user is an ephemeral guest identity
func (u *User) IsGuest() bool {
	return u.Role == RoleGuest || u.ID == 0
}

// AuthSession represents an authenticated browser session
type AuthSession struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *AuthSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
