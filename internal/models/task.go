package models

import (
	"errors"
	"fmt"
)

// TaskKind identifies the exercise variant of a task.
type TaskKind string

const (
	TaskPunctuation TaskKind = "punctuation"
	TaskSpelling    TaskKind = "spelling"
)

// ParseTaskKind converts a string into a known task kind
func ParseTaskKind(s string) (TaskKind, error) {
	switch TaskKind(s) {
	case TaskPunctuation:
		return TaskPunctuation, nil
	case TaskSpelling:
		return TaskSpelling, nil
	default:
		return "", fmt.Errorf("unknown task kind: %q", s)
	}
}

// ErrInvalidMultiplier is returned when a score multiplier is zero or negative
var ErrInvalidMultiplier = errors.New("score multiplier must be a positive integer")

// Highlight marks one candidate punctuation insertion point in a sentence.
// SpaceIndex is the byte offset of the space character; spaces are single-byte
// so offsets are exact even for accented Lithuanian text.
type Highlight struct {
	SpaceIndex     int
	IsSelected     bool
	HasPunctuation bool
}

// Task represents one exercise item. The immutable source fields (Sentence,
// Options, CorrectAnswer, Explanation, Topic) come from the task store;
// UserText, TaskStatus and Highlights are working state owned by an exercise
// session and are re-derived every time the task enters a fresh run.
type Task struct {
	ID            int64
	Kind          TaskKind
	Sentence      string
	UserText      string
	Options       []string
	CorrectAnswer string
	Explanation   string
	Topic         string
	TaskStatus    bool
	Highlights    []Highlight
}

// InitializeHighlights rebuilds the highlight list from the sentence: one
// highlight per space character, in ascending order of appearance. Any prior
// selection state is discarded. Non-punctuation tasks get no highlights.
func (t *Task) InitializeHighlights() {
	t.Highlights = nil
	if t.Kind != TaskPunctuation {
		return
	}
	for i := 0; i < len(t.Sentence); i++ {
		if t.Sentence[i] == ' ' {
			t.Highlights = append(t.Highlights, Highlight{SpaceIndex: i})
		}
	}
}

// ToggleHighlight flips the selection state of the highlight at the given
// space index. Returns false if no highlight exists at that index.
func (t *Task) ToggleHighlight(spaceIndex int) bool {
	for i := range t.Highlights {
		if t.Highlights[i].SpaceIndex == spaceIndex {
			t.Highlights[i].IsSelected = !t.Highlights[i].IsSelected
			return true
		}
	}
	return false
}

// IsAnswerCorrect reports whether the submitted answer matches the accepted
// answer. Both shipped variants use exact case-sensitive comparison; the
// dispatch stays here so future kinds can compare differently without the
// session caring.
func (t *Task) IsAnswerCorrect(answer string) bool {
	switch t.Kind {
	case TaskPunctuation, TaskSpelling:
		return answer == t.CorrectAnswer
	default:
		return answer == t.CorrectAnswer
	}
}

// basePoints is the per-variant point value of a correct answer.
func (t *Task) basePoints() int {
	if t.Kind == TaskSpelling {
		return 15
	}
	return 20
}

// Points returns the score awarded for an answer. Incorrect answers are always
// worth zero. Multipliers below 1 are rejected with ErrInvalidMultiplier.
func (t *Task) Points(isCorrect bool, multiplier int) (int, error) {
	if multiplier < 1 {
		return 0, ErrInvalidMultiplier
	}
	if !isCorrect {
		return 0, nil
	}
	return t.basePoints() * multiplier, nil
}

// ResetProgress clears the working state: status back to unanswered, UserText
// re-derived from the sentence, highlights rebuilt.
func (t *Task) ResetProgress() {
	t.TaskStatus = false
	t.UserText = t.Sentence
	t.InitializeHighlights()
}
