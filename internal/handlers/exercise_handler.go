package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/exercise"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/security"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

const guestCookieName = "guest_id"

// playerSession pairs a running exercise session with what it was
// started from, so the practice record can be attributed on End.
type playerSession struct {
	session *exercise.Session
	kind    models.TaskKind
	topic   string
	touched time.Time
}

// ExerciseHandler drives practice runs over HTTP. Each player (session
// cookie or guest cookie) owns at most one active run.
type ExerciseHandler struct {
	uploadService *service.UploadService
	userService   *service.UserService

	mu       sync.Mutex
	sessions map[string]*playerSession
}

// NewExerciseHandler creates a new exercise handler
func NewExerciseHandler(uploadService *service.UploadService, userService *service.UserService) *ExerciseHandler {
	return &ExerciseHandler{
		uploadService: uploadService,
		userService:   userService,
		sessions:      make(map[string]*playerSession),
	}
}

// highlightView is the JSON shape of one candidate insertion point
type highlightView struct {
	SpaceIndex     int  `json:"spaceIndex"`
	IsSelected     bool `json:"isSelected"`
	HasPunctuation bool `json:"hasPunctuation"`
}

// taskView is the JSON shape of a task inside a running session. The
// correct answer and its explanation are withheld until the task is
// answered; they arrive in the answer response instead.
type taskView struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	Sentence   string          `json:"sentence"`
	UserText   string          `json:"userText"`
	Options    []string        `json:"options"`
	Topic      string          `json:"topic,omitempty"`
	Answered   bool            `json:"answered"`
	Highlights []highlightView `json:"highlights,omitempty"`
}

func newTaskView(t *models.Task) *taskView {
	if t == nil {
		return nil
	}
	v := &taskView{
		ID:       t.ID,
		Kind:     string(t.Kind),
		Sentence: t.Sentence,
		UserText: t.UserText,
		Options:  t.Options,
		Topic:    t.Topic,
		Answered: t.TaskStatus,
	}
	for _, hl := range t.Highlights {
		v.Highlights = append(v.Highlights, highlightView{
			SpaceIndex:     hl.SpaceIndex,
			IsSelected:     hl.IsSelected,
			HasPunctuation: hl.HasPunctuation,
		})
	}
	return v
}

// stateView is the JSON shape of a session's observable state
type stateView struct {
	Phase        string    `json:"phase"`
	Score        int       `json:"score"`
	CurrentIndex int       `json:"currentIndex"`
	TaskCount    int       `json:"taskCount"`
	CurrentTask  *taskView `json:"currentTask"`
}

func newStateView(s *exercise.Session) stateView {
	return stateView{
		Phase:        s.Phase().String(),
		Score:        s.Score(),
		CurrentIndex: s.CurrentIndex(),
		TaskCount:    s.TaskCount(),
		CurrentTask:  newTaskView(s.CurrentTask()),
	}
}

// playerKey identifies the caller: authenticated users by ID, anonymous
// visitors by a guest cookie set on first contact.
func (h *ExerciseHandler) playerKey(w http.ResponseWriter, r *http.Request) string {
	if user := GetUserFromContext(r.Context()); user != nil && !user.IsGuest() {
		return fmt.Sprintf("user:%d", user.ID)
	}
	if cookie, err := r.Cookie(guestCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := security.GenerateGuestID()
	http.SetCookie(w, security.CreateSessionCookie(r, guestCookieName, id, time.Now().Add(24*time.Hour)))
	return id
}

func (h *ExerciseHandler) lookup(key string) *playerSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	ps := h.sessions[key]
	if ps != nil {
		ps.touched = time.Now()
	}
	return ps
}

// SweepStale drops sessions that have not been touched within maxAge and
// reports how many were removed. Guests abandon runs without calling End,
// so the registry needs periodic collection.
func (h *ExerciseHandler) SweepStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for key, ps := range h.sessions {
		if ps.touched.Before(cutoff) {
			delete(h.sessions, key)
			removed++
		}
	}
	return removed
}

// Start handles POST /api/exercise/start. It loads the requested tasks,
// replaces any previous session for the caller and begins a run.
func (h *ExerciseHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskType string `json:"taskType"`
		Topic    string `json:"topic"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tasks, err := h.uploadService.GetTasks(req.TaskType, req.Topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	session := exercise.NewSession(tasks)
	if err := session.Start(); err != nil {
		writeServiceError(w, err)
		return
	}

	kind, _ := models.ParseTaskKind(req.TaskType)
	key := h.playerKey(w, r)
	h.mu.Lock()
	h.sessions[key] = &playerSession{session: session, kind: kind, topic: req.Topic, touched: time.Now()}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, newStateView(session))
}

// State handles GET /api/exercise/state
func (h *ExerciseHandler) State(w http.ResponseWriter, r *http.Request) {
	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, newStateView(ps.session))
}

// answerView extends the per-answer result with the session state
type answerView struct {
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	Score         int       `json:"score"`
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation"`
	State         stateView `json:"state"`
}

// Answer handles POST /api/exercise/answer
func (h *ExerciseHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer     string `json:"answer"`
		Multiplier int    `json:"multiplier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}

	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	result, err := ps.session.CheckAnswerWithMultiplier(req.Answer, req.Multiplier)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerView{
		Correct:       result.Correct,
		Points:        result.Points,
		Score:         result.Score,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
		State:         newStateView(ps.session),
	})
}

// Next handles POST /api/exercise/next
func (h *ExerciseHandler) Next(w http.ResponseWriter, r *http.Request) {
	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err := ps.session.NextTask(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(ps.session))
}

// ToggleHighlight handles POST /api/exercise/highlight
func (h *ExerciseHandler) ToggleHighlight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpaceIndex int `json:"spaceIndex"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err := ps.session.ToggleHighlight(req.SpaceIndex); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(ps.session))
}

// summaryView is the JSON shape of a finished run
type summaryView struct {
	Score           int     `json:"score"`
	TotalQuestions  int     `json:"totalQuestions"`
	TasksAnswered   int     `json:"tasksAnswered"`
	CorrectAnswers  int     `json:"correctAnswers"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// End handles POST /api/exercise/end. For registered users the run is
// folded into their lifetime stats and appended to the practice history;
// guests keep nothing.
func (h *ExerciseHandler) End(w http.ResponseWriter, r *http.Request) {
	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	summary, err := ps.session.End()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if user := GetUserFromContext(r.Context()); user != nil && !user.IsGuest() {
		if err := h.userService.UpdateUserStats(user, summary); err != nil {
			writeServiceError(w, err)
			return
		}
		record := &models.PracticeSession{
			TaskKind:       ps.kind,
			Topic:          ps.topic,
			Score:          summary.Score,
			TotalQuestions: summary.TotalQuestions,
			CorrectAnswers: summary.CorrectAnswers,
			Duration:       summary.Duration,
			CompletedAt:    time.Now(),
		}
		if err := h.userService.RecordPracticeSession(user, record); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, summaryView{
		Score:           summary.Score,
		TotalQuestions:  summary.TotalQuestions,
		TasksAnswered:   summary.TasksAnswered,
		CorrectAnswers:  summary.CorrectAnswers,
		DurationSeconds: summary.Duration.Seconds(),
	})
}

// Restart handles POST /api/exercise/restart. The session returns to
// idle with all working state cleared; a new run needs another Start.
func (h *ExerciseHandler) Restart(w http.ResponseWriter, r *http.Request) {
	ps := h.lookup(h.playerKey(w, r))
	if ps == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	ps.session.Restart()
	writeJSON(w, http.StatusOK, newStateView(ps.session))
}
