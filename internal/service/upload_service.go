package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/validation"
)

// Punctuation tasks may only offer these marks as answer options.
var allowedPunctuation = map[string]bool{
	".": true, ",": true, ";": true, ":": true,
	"!": true, "?": true, " -": true,
}

// taskUpload is the wire shape of one task in an uploaded JSON batch.
type taskUpload struct {
	Sentence      string   `json:"sentence"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic"`
}

// UploadService validates uploaded task batches and persists them as a
// single all-or-nothing write.
type UploadService struct {
	tasks TaskStore
}

func NewUploadService(tasks TaskStore) *UploadService {
	return &UploadService{tasks: tasks}
}

// ProcessUpload parses a JSON array of tasks, validates every record and
// stores the whole batch. Any invalid record rejects the entire upload
// before anything is persisted. Returns the number of tasks stored.
func (s *UploadService) ProcessUpload(content []byte, kindStr, topic string) (int, error) {
	kind, err := models.ParseTaskKind(kindStr)
	if err != nil {
		return 0, validation.ValidationError{Field: "taskType", Message: err.Error()}
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return 0, validation.ValidationError{Field: "file", Message: "uploaded file is empty"}
	}

	var uploads []taskUpload
	if err := json.Unmarshal(content, &uploads); err != nil {
		return 0, validation.ValidationError{Field: "file", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if len(uploads) == 0 {
		return 0, validation.ValidationError{Field: "file", Message: "uploaded file contains no tasks"}
	}

	batch := make([]models.Task, 0, len(uploads))
	for i, up := range uploads {
		if err := validateUpload(i, up, kind); err != nil {
			return 0, err
		}
		taskTopic := up.Topic
		if taskTopic == "" {
			taskTopic = topic
		}
		batch = append(batch, models.Task{
			Kind:          kind,
			Sentence:      up.Sentence,
			UserText:      up.Sentence,
			Options:       up.Options,
			CorrectAnswer: up.CorrectAnswer,
			Explanation:   up.Explanation,
			Topic:         taskTopic,
		})
	}

	if err := s.tasks.CreateTasks(batch); err != nil {
		return 0, fmt.Errorf("storing uploaded tasks: %w", err)
	}
	return len(batch), nil
}

func validateUpload(index int, up taskUpload, kind models.TaskKind) error {
	fail := func(field, msg string) error {
		return validation.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("task %d: %s", index+1, msg),
		}
	}

	if strings.TrimSpace(up.Sentence) == "" {
		return fail("sentence", "missing required field 'sentence'")
	}
	if len(up.Options) == 0 {
		return fail("options", "missing required field 'options'")
	}
	if strings.TrimSpace(up.CorrectAnswer) == "" {
		return fail("correctAnswer", "missing required field 'correctAnswer'")
	}
	if strings.TrimSpace(up.Explanation) == "" {
		return fail("explanation", "missing required field 'explanation'")
	}

	for _, opt := range up.Options {
		switch kind {
		case models.TaskPunctuation:
			if !allowedPunctuation[opt] {
				return fail("options", fmt.Sprintf("%q is not a valid punctuation option", opt))
			}
		case models.TaskSpelling:
			if !isLettersOnly(opt) {
				return fail("options", fmt.Sprintf("%q is not a valid spelling option", opt))
			}
		}
	}
	return nil
}

func isLettersOnly(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// GetTasks loads tasks of a kind, optionally filtered to one topic.
func (s *UploadService) GetTasks(kindStr, topic string) ([]models.Task, error) {
	kind, err := models.ParseTaskKind(kindStr)
	if err != nil {
		return nil, validation.ValidationError{Field: "taskType", Message: err.Error()}
	}
	if topic != "" {
		return s.tasks.GetTasksByTopic(kind, topic)
	}
	return s.tasks.GetTasksByKind(kind)
}

// DeleteTask removes a stored task. Returns false when no such task exists.
func (s *UploadService) DeleteTask(id int64) (bool, error) {
	return s.tasks.DeleteTask(id)
}

// GetTopics lists the distinct topics available for a task kind.
func (s *UploadService) GetTopics(kindStr string) ([]string, error) {
	kind, err := models.ParseTaskKind(kindStr)
	if err != nil {
		return nil, validation.ValidationError{Field: "taskType", Message: err.Error()}
	}
	return s.tasks.GetTopics(kind)
}
