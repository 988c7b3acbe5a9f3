package repository

import (
	"fmt"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/database"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

// PracticeRepository handles practice session history
type PracticeRepository struct {
	db *database.DB
}

// NewPracticeRepository creates a new practice repository
func NewPracticeRepository(db *database.DB) *PracticeRepository {
	return &PracticeRepository{db: db}
}

// AppendSession records a completed practice session for a user
func (r *PracticeRepository) AppendSession(userID int64, session *models.PracticeSession) error {
	query := `
		INSERT INTO practice_sessions (user_id, task_kind, topic, score,
			total_questions, correct_answers, duration_seconds, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	completedAt := session.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	id, err := r.db.ExecReturningID(query,
		userID,
		string(session.TaskKind),
		session.Topic,
		session.Score,
		session.TotalQuestions,
		session.CorrectAnswers,
		int64(session.Duration.Seconds()),
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append practice session: %w", err)
	}
	session.ID = id
	session.UserID = userID
	return nil
}

// GetSessionsForUser retrieves a user's practice history, most recent first
func (r *PracticeRepository) GetSessionsForUser(userID int64, limit int) ([]models.PracticeSession, error) {
	query := `
		SELECT id, user_id, task_kind, topic, score, total_questions,
			correct_answers, duration_seconds, completed_at
		FROM practice_sessions
		WHERE user_id = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query practice sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.PracticeSession
	for rows.Next() {
		var s models.PracticeSession
		var kind string
		var durationSeconds int64
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&kind,
			&s.Topic,
			&s.Score,
			&s.TotalQuestions,
			&s.CorrectAnswers,
			&durationSeconds,
			&s.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		s.TaskKind = models.TaskKind(kind)
		s.Duration = time.Duration(durationSeconds) * time.Second
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
