package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/database"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

// UserRepository handles database operations for users, auth sessions and
// password reset tokens
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, COALESCE(google_id, ''), email, password_hash, display_name, role,
	high_score, total_lessons_completed, total_study_time_seconds,
	total_attempts, correct_answers, current_streak, best_streak,
	last_login_at, created_at, updated_at
`

// CreateUser inserts a new user and fills in its assigned ID
func (r *UserRepository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (google_id, email, password_hash, display_name, role,
			high_score, total_lessons_completed, total_study_time_seconds,
			total_attempts, correct_answers, current_streak, best_streak, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var googleID interface{}
	if user.GoogleID != "" {
		googleID = user.GoogleID
	}
	id, err := r.db.ExecReturningID(query,
		googleID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		string(user.Role),
		user.HighScore,
		user.TotalLessonsCompleted,
		int64(user.TotalStudyTime.Seconds()),
		user.TotalAttempts,
		user.CorrectAnswers,
		user.CurrentStreak,
		user.BestStreak,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	return r.getUser("SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.getUser("SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetUserByGoogleID retrieves a user by Google subject. Returns (nil, nil) when absent.
func (r *UserRepository) GetUserByGoogleID(googleID string) (*models.User, error) {
	return r.getUser("SELECT "+userColumns+" FROM users WHERE google_id = ?", googleID)
}

func (r *UserRepository) getUser(query string, arg interface{}) (*models.User, error) {
	row := r.db.QueryRow(query, arg)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser persists every mutable field of the user record
func (r *UserRepository) UpdateUser(user *models.User) error {
	query := `
		UPDATE users
		SET google_id = ?, email = ?, password_hash = ?, display_name = ?, role = ?,
			high_score = ?, total_lessons_completed = ?, total_study_time_seconds = ?,
			total_attempts = ?, correct_answers = ?, current_streak = ?, best_streak = ?,
			last_login_at = ?, updated_at = ?
		WHERE id = ?
	`
	var googleID interface{}
	if user.GoogleID != "" {
		googleID = user.GoogleID
	}
	_, err := r.db.Exec(query,
		googleID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		string(user.Role),
		user.HighScore,
		user.TotalLessonsCompleted,
		int64(user.TotalStudyTime.Seconds()),
		user.TotalAttempts,
		user.CorrectAnswers,
		user.CurrentStreak,
		user.BestStreak,
		user.LastLoginAt,
		time.Now(),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// TopUsers returns the highest-ranked users ordered by the given column.
// orderBy must be one of the fixed leaderboard columns; it is never taken
// from user input.
func (r *UserRepository) topUsers(orderBy string, limit int) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY " + orderBy + " DESC LIMIT ?"
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// ListUsers returns users ordered by most recent signup
func (r *UserRepository) ListUsers(limit int) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC LIMIT ?"
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// TopByHighScore returns the top users by session high score
func (r *UserRepository) TopByHighScore(limit int) ([]models.User, error) {
	return r.topUsers("high_score", limit)
}

// TopByCurrentStreak returns the top users by active daily streak
func (r *UserRepository) TopByCurrentStreak(limit int) ([]models.User, error) {
	return r.topUsers("current_streak", limit)
}

// TopByBestStreak returns the top users by best-ever daily streak
func (r *UserRepository) TopByBestStreak(limit int) ([]models.User, error) {
	return r.topUsers("best_streak", limit)
}

// TopByLessonsCompleted returns the top users by lessons completed
func (r *UserRepository) TopByLessonsCompleted(limit int) ([]models.User, error) {
	return r.topUsers("total_lessons_completed", limit)
}

// CreateSession inserts a new auth session
func (r *UserRepository) CreateSession(session *models.AuthSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO auth_sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, session.ID, session.UserID, session.ExpiresAt, session.CreatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves an auth session by ID. Returns (nil, nil) when absent.
func (r *UserRepository) GetSession(sessionID string) (*models.AuthSession, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM auth_sessions
		WHERE id = ?
	`
	session := &models.AuthSession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes an auth session
func (r *UserRepository) DeleteSession(sessionID string) error {
	_, err := r.db.Exec("DELETE FROM auth_sessions WHERE id = ?", sessionID)
	return err
}

// DeleteExpiredSessions removes all expired auth sessions and reports
// how many were dropped
func (r *UserRepository) DeleteExpiredSessions() (int64, error) {
	result, err := r.db.Exec("DELETE FROM auth_sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// CreateResetToken inserts a password reset token
func (r *UserRepository) CreateResetToken(token *models.PasswordResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, token.Token, token.UserID, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// GetResetToken retrieves a password reset token. Returns (nil, nil) when absent.
func (r *UserRepository) GetResetToken(token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT token, user_id, expires_at, created_at, used
		FROM password_reset_tokens
		WHERE token = ?
	`
	t := &models.PasswordResetToken{}
	err := r.db.QueryRow(query, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt, &t.Used)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return t, nil
}

// MarkResetTokenUsed invalidates a reset token after a successful reset
func (r *UserRepository) MarkResetTokenUsed(token string) error {
	_, err := r.db.Exec("UPDATE password_reset_tokens SET used = ? WHERE token = ?", true, token)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var studySeconds int64
	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&role,
		&user.HighScore,
		&user.TotalLessonsCompleted,
		&studySeconds,
		&user.TotalAttempts,
		&user.CorrectAnswers,
		&user.CurrentStreak,
		&user.BestStreak,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.UserRole(role)
	user.TotalStudyTime = time.Duration(studySeconds) * time.Second
	return user, nil
}

func scanUserRows(rows *sql.Rows) (*models.User, error) {
	return scanUser(rows)
}
