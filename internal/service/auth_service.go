package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/security"
	"github.com/GustasGrieze/Gramatikonas/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles registration, login and session lifecycle for both
// local accounts and Google sign-in.
type AuthService struct {
	users           UserStore
	sessions        SessionStore
	userService     *UserService
	sessionDuration time.Duration
	adminEmails     map[string]bool
}

// NewAuthService creates a new auth service. Emails in adminEmails are
// granted the admin role on account creation.
func NewAuthService(users UserStore, sessions SessionStore, userService *UserService, sessionDuration time.Duration, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &AuthService{
		users:           users,
		sessions:        sessions,
		userService:     userService,
		sessionDuration: sessionDuration,
		adminEmails:     admins,
	}
}

func (s *AuthService) roleForEmail(email string) models.UserRole {
	if s.adminEmails[strings.ToLower(email)] {
		return models.RoleAdmin
	}
	return models.RoleRegistered
}

// Register creates a new local account.
func (s *AuthService) Register(email, password, name string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  name,
		Role:         s.roleForEmail(email),
	}
	if err := s.users.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a local account, records the login streak and
// creates a session.
func (s *AuthService) Login(email, password string) (*models.AuthSession, *models.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.userService.RecordLoginStreak(user); err != nil {
		return nil, nil, err
	}
	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// GoogleLogin authenticates a Google account by its subject claim,
// creating the account on first sign-in.
func (s *AuthService) GoogleLogin(subject, email, name string) (*models.AuthSession, *models.User, error) {
	if subject == "" {
		return nil, nil, errors.New("missing google subject")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetUserByGoogleID(subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup google user: %w", err)
	}
	if user == nil {
		existing, err := s.users.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			// Link the Google identity to the local account.
			existing.GoogleID = subject
			user = existing
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			user = &models.User{
				GoogleID:    subject,
				Email:       email,
				DisplayName: name,
				Role:        s.roleForEmail(email),
			}
			if err := s.users.CreateUser(user); err != nil {
				return nil, nil, fmt.Errorf("failed to create google user: %w", err)
			}
		}
	}

	if err := s.userService.RecordLoginStreak(user); err != nil {
		return nil, nil, err
	}
	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(userID int64) (*models.AuthSession, error) {
	session := &models.AuthSession{
		ID:        security.GenerateSessionID(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.sessionDuration),
		CreatedAt: time.Now(),
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user.
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.sessions.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session.
func (s *AuthService) Logout(sessionID string) error {
	if err := s.sessions.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database.
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// RequestPasswordReset creates a reset token and mails it to the user.
// Unknown emails and Google-only accounts are silently ignored so the
// endpoint does not reveal which addresses exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, email string) error {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	resetToken := &models.PasswordResetToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(1 * time.Hour),
		CreatedAt: time.Now(),
	}
	if err := s.sessions.CreateResetToken(resetToken); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if emailService != nil && emailService.IsEnabled() {
		if err := emailService.SendPasswordResetEmail(ctx, user.Email, user.DisplayName, token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}
	return nil
}

// ResetPassword sets a new password using a valid reset token.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	resetToken, err := s.sessions.GetResetToken(token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}
	if resetToken == nil {
		return errors.New("invalid or expired reset token")
	}
	if resetToken.Used {
		return errors.New("this reset link has already been used")
	}
	if resetToken.IsExpired() {
		return errors.New("this reset link has expired")
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.GetUserByID(resetToken.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return errors.New("invalid or expired reset token")
	}
	user.PasswordHash = passwordHash
	if err := s.users.UpdateUser(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.MarkResetTokenUsed(token); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	return nil
}

// generateSecureToken generates a cryptographically secure random token.
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
