// Package exercise drives a single practice run from start to summary.
// A Session owns the working copies of its tasks (user text, highlight
// selection, answered status) for the duration of a run; the immutable task
// definitions come from the repository and are copied on InitTasks so no
// state leaks between runs or between sessions.
package exercise

import (
	"errors"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
)

// Phase is the lifecycle state of a session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseSummary
)

// String returns the lowercase phase name used in API payloads
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseSummary:
		return "summary"
	default:
		return "idle"
	}
}

var (
	// ErrInvalidState is reported when an operation is invoked in a phase
	// that does not permit it. The session is left untouched.
	ErrInvalidState = errors.New("operation not allowed in current session phase")

	// ErrNoTasks is reported when a session is started with an empty task list
	ErrNoTasks = errors.New("session has no tasks")

	// ErrHighlightNotFound is reported when toggling a space index that has
	// no highlight on the current task
	ErrHighlightNotFound = errors.New("no highlight at the given space index")
)

// AnswerResult describes the outcome of a single CheckAnswer call
type AnswerResult struct {
	Correct       bool
	Points        int
	Score         int
	CorrectAnswer string
	Explanation   string
}

// Summary reports the totals of a finished run
type Summary struct {
	Score          int
	TotalQuestions int
	TasksAnswered  int
	CorrectAnswers int
	Duration       time.Duration
}

// Session is the state machine for one practice run. It is not safe for
// concurrent use; a session belongs to exactly one user on one device.
type Session struct {
	tasks     []*models.Task
	current   int
	score     int
	phase     Phase
	answered  int
	correct   int
	startedAt time.Time
}

// NewSession creates an idle session over the given task definitions.
// The definitions are copied; the caller's slice is never mutated.
func NewSession(tasks []models.Task) *Session {
	s := &Session{phase: PhaseIdle}
	s.InitTasks(tasks)
	return s
}

// InitTasks replaces the task list and derives fresh working state for every
// task: UserText from Sentence, highlights rebuilt, status cleared. The phase
// is left unchanged. Calling it twice with the same list yields identical
// working state both times.
func (s *Session) InitTasks(tasks []models.Task) {
	s.tasks = make([]*models.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		t.ResetProgress()
		s.tasks[i] = &t
	}
}

// Start begins a run: score and position reset, every task's working state
// re-derived so edits from a previous run are discarded. Valid from Idle or
// Summary (and from Running, which simply restarts the run in place).
func (s *Session) Start() error {
	if len(s.tasks) == 0 {
		return ErrNoTasks
	}
	s.score = 0
	s.current = 0
	s.answered = 0
	s.correct = 0
	for _, t := range s.tasks {
		t.ResetProgress()
	}
	s.phase = PhaseRunning
	s.startedAt = time.Now()
	return nil
}

// CheckAnswer validates the submitted answer against the current task with
// the default multiplier of 1
func (s *Session) CheckAnswer(answer string) (*AnswerResult, error) {
	return s.CheckAnswerWithMultiplier(answer, 1)
}

// CheckAnswerWithMultiplier validates the submitted answer against the
// current task. An empty answer is treated as incorrect, never an error.
// On a correct answer the task is marked done and the score grows by the
// variant's point value times the multiplier; on an incorrect answer nothing
// changes except the attempt counter. Only valid while Running.
func (s *Session) CheckAnswerWithMultiplier(answer string, multiplier int) (*AnswerResult, error) {
	if s.phase != PhaseRunning {
		return nil, ErrInvalidState
	}
	task := s.CurrentTask()
	if task == nil {
		return nil, ErrInvalidState
	}

	correct := answer != "" && task.IsAnswerCorrect(answer)
	points, err := task.Points(correct, multiplier)
	if err != nil {
		return nil, err
	}

	s.answered++
	if correct {
		task.TaskStatus = true
		s.correct++
		s.score += points
	}

	return &AnswerResult{
		Correct:       correct,
		Points:        points,
		Score:         s.score,
		CorrectAnswer: task.CorrectAnswer,
		Explanation:   task.Explanation,
	}, nil
}

// NextTask advances to the next task. Advancing past the last task does not
// finalize the run: the session stays Running with no current task, and the
// caller must call End explicitly (the original flow keeps the two steps
// separate). Only valid while Running.
func (s *Session) NextTask() error {
	if s.phase != PhaseRunning {
		return ErrInvalidState
	}
	if s.current < len(s.tasks) {
		s.current++
	}
	return nil
}

// ToggleHighlight flips the selection of the current task's highlight at the
// given space index. Only valid while Running.
func (s *Session) ToggleHighlight(spaceIndex int) error {
	if s.phase != PhaseRunning {
		return ErrInvalidState
	}
	task := s.CurrentTask()
	if task == nil {
		return ErrInvalidState
	}
	if !task.ToggleHighlight(spaceIndex) {
		return ErrHighlightNotFound
	}
	return nil
}

// End finishes the run and freezes the score for reporting. Only valid while
// Running. The returned summary is what the progress updater consumes.
func (s *Session) End() (*Summary, error) {
	if s.phase != PhaseRunning {
		return nil, ErrInvalidState
	}
	s.phase = PhaseSummary
	return &Summary{
		Score:          s.score,
		TotalQuestions: len(s.tasks),
		TasksAnswered:  s.answered,
		CorrectAnswers: s.correct,
		Duration:       time.Since(s.startedAt),
	}, nil
}

// Restart returns the session to Idle with all working state cleared. It does
// not start a new run; the caller must call Start again.
func (s *Session) Restart() {
	s.score = 0
	s.current = 0
	s.answered = 0
	s.correct = 0
	for _, t := range s.tasks {
		t.ResetProgress()
	}
	s.phase = PhaseIdle
}

// Phase returns the session's lifecycle state
func (s *Session) Phase() Phase {
	return s.phase
}

// Score returns the running score of the current run
func (s *Session) Score() int {
	return s.score
}

// CurrentIndex returns the zero-based position in the task list. It equals
// the task count once NextTask has moved past the last task.
func (s *Session) CurrentIndex() int {
	return s.current
}

// CurrentTask returns the task at the current position, or nil when the run
// has moved past the last task.
func (s *Session) CurrentTask() *models.Task {
	if s.current < 0 || s.current >= len(s.tasks) {
		return nil
	}
	return s.tasks[s.current]
}

// Tasks exposes the session's working copies, in order
func (s *Session) Tasks() []*models.Task {
	return s.tasks
}

// TaskCount returns the number of tasks in the run
func (s *Session) TaskCount() int {
	return len(s.tasks)
}
