package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/GustasGrieze/Gramatikonas/internal/database"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

// TaskRepository handles database operations for exercise tasks
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTasks inserts a batch of tasks in a single transaction. Either every
// task is persisted or none are.
func (r *TaskRepository) CreateTasks(tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tasks (kind, sentence, options, correct_answer, explanation, topic)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i := range tasks {
		optionsJSON, err := json.Marshal(tasks[i].Options)
		if err != nil {
			return fmt.Errorf("failed to encode options: %w", err)
		}
		id, err := tx.ExecReturningID(query,
			string(tasks[i].Kind),
			tasks[i].Sentence,
			string(optionsJSON),
			tasks[i].CorrectAnswer,
			tasks[i].Explanation,
			tasks[i].Topic,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		tasks[i].ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task batch: %w", err)
	}
	return nil
}

// GetTasksByTopic retrieves all tasks of a kind for a topic, in insertion order
func (r *TaskRepository) GetTasksByTopic(kind models.TaskKind, topic string) ([]models.Task, error) {
	query := `
		SELECT id, kind, sentence, options, correct_answer, explanation, topic
		FROM tasks
		WHERE kind = ? AND topic = ?
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, string(kind), topic)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// GetTasksByKind retrieves all tasks of a kind regardless of topic
func (r *TaskRepository) GetTasksByKind(kind models.TaskKind) ([]models.Task, error) {
	query := `
		SELECT id, kind, sentence, options, correct_answer, explanation, topic
		FROM tasks
		WHERE kind = ?
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// GetTopics lists the distinct topics available for a kind
func (r *TaskRepository) GetTopics(kind models.TaskKind) ([]string, error) {
	query := `
		SELECT DISTINCT topic FROM tasks
		WHERE kind = ?
		ORDER BY topic ASC
	`
	rows, err := r.db.Query(query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// DeleteTask removes a task by ID. Returns false if no task matched.
func (r *TaskRepository) DeleteTask(id int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		var kind, optionsJSON string
		err := rows.Scan(
			&task.ID,
			&kind,
			&task.Sentence,
			&optionsJSON,
			&task.CorrectAnswer,
			&task.Explanation,
			&task.Topic,
		)
		if err != nil {
			return nil, err
		}
		task.Kind = models.TaskKind(kind)
		if err := json.Unmarshal([]byte(optionsJSON), &task.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options for task %d: %w", task.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
