package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

type stubTaskStore struct {
	tasks []models.Task
}

func (s *stubTaskStore) CreateTasks(tasks []models.Task) error {
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *stubTaskStore) GetTasksByTopic(kind models.TaskKind, topic string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range s.tasks {
		if t.Kind == kind && t.Topic == topic {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTaskStore) GetTasksByKind(kind models.TaskKind) ([]models.Task, error) {
	var out []models.Task
	for _, t := range s.tasks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTaskStore) GetTopics(kind models.TaskKind) ([]string, error) { return nil, nil }
func (s *stubTaskStore) DeleteTask(id int64) (bool, error)               { return false, nil }

type stubUserStore struct{}

func (s *stubUserStore) CreateUser(user *models.User) error                  { return nil }
func (s *stubUserStore) GetUserByID(id int64) (*models.User, error)          { return nil, nil }
func (s *stubUserStore) GetUserByEmail(email string) (*models.User, error)   { return nil, nil }
func (s *stubUserStore) GetUserByGoogleID(gid string) (*models.User, error)  { return nil, nil }
func (s *stubUserStore) UpdateUser(user *models.User) error                  { return nil }
func (s *stubUserStore) ListUsers(n int) ([]models.User, error)              { return nil, nil }
func (s *stubUserStore) TopByHighScore(n int) ([]models.User, error)         { return nil, nil }
func (s *stubUserStore) TopByCurrentStreak(n int) ([]models.User, error)     { return nil, nil }
func (s *stubUserStore) TopByBestStreak(n int) ([]models.User, error)        { return nil, nil }
func (s *stubUserStore) TopByLessonsCompleted(n int) ([]models.User, error)  { return nil, nil }

type stubPracticeStore struct{}

func (s *stubPracticeStore) AppendSession(userID int64, sess *models.PracticeSession) error {
	return nil
}

func (s *stubPracticeStore) GetSessionsForUser(userID int64, limit int) ([]models.PracticeSession, error) {
	return nil, nil
}

func newTestExerciseHandler() *ExerciseHandler {
	store := &stubTaskStore{tasks: []models.Task{
		{
			ID:            1,
			Kind:          models.TaskPunctuation,
			Sentence:      "Task 1",
			Options:       []string{","},
			CorrectAnswer: "CorrectAnswer1",
			Explanation:   "Explanation 1",
			Topic:         "Tema",
		},
		{
			ID:            2,
			Kind:          models.TaskPunctuation,
			Sentence:      "Task 2",
			Options:       []string{","},
			CorrectAnswer: "CorrectAnswer2",
			Explanation:   "Explanation 2",
			Topic:         "Tema",
		},
	}}
	uploadService := service.NewUploadService(store)
	userService := service.NewUserService(&stubUserStore{}, &stubPracticeStore{})
	return NewExerciseHandler(uploadService, userService)
}

// doJSON performs a request against the handler, carrying cookies from
// previous responses so the guest identity persists across calls.
func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}, cookies []*http.Cookie) (*httptest.ResponseRecorder, []*http.Cookie) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec, append(cookies, rec.Result().Cookies()...)
}

func TestExerciseFlow(t *testing.T) {
	h := newTestExerciseHandler()

	rec, cookies := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "punctuation", "topic": "Tema"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Start status = %d, body %s", rec.Code, rec.Body.String())
	}

	var state stateView
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding start response: %v", err)
	}
	if state.Phase != "running" {
		t.Errorf("phase = %q, want running", state.Phase)
	}
	if state.TaskCount != 2 {
		t.Errorf("taskCount = %d, want 2", state.TaskCount)
	}
	if state.CurrentTask == nil || state.CurrentTask.Sentence != "Task 1" {
		t.Fatalf("currentTask = %+v, want Task 1", state.CurrentTask)
	}

	rec, cookies = doJSON(t, h.Answer, http.MethodPost, "/api/exercise/answer",
		map[string]string{"answer": "CorrectAnswer1"}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("Answer status = %d, body %s", rec.Code, rec.Body.String())
	}

	var answer answerView
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decoding answer response: %v", err)
	}
	if !answer.Correct {
		t.Error("answer.correct = false, want true")
	}
	if answer.Points != 20 {
		t.Errorf("answer.points = %d, want 20", answer.Points)
	}
	if answer.CorrectAnswer != "CorrectAnswer1" {
		t.Errorf("answer.correctAnswer = %q", answer.CorrectAnswer)
	}

	rec, cookies = doJSON(t, h.Next, http.MethodPost, "/api/exercise/next", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("Next status = %d", rec.Code)
	}

	rec, cookies = doJSON(t, h.Answer, http.MethodPost, "/api/exercise/answer",
		map[string]string{"answer": "wrong"}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("Answer status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decoding answer response: %v", err)
	}
	if answer.Correct {
		t.Error("answer.correct = true for wrong answer")
	}
	if answer.Score != 20 {
		t.Errorf("score = %d, want 20", answer.Score)
	}

	rec, cookies = doJSON(t, h.End, http.MethodPost, "/api/exercise/end", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("End status = %d, body %s", rec.Code, rec.Body.String())
	}

	var summary summaryView
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Score != 20 {
		t.Errorf("summary.score = %d, want 20", summary.Score)
	}
	if summary.TasksAnswered != 2 {
		t.Errorf("summary.tasksAnswered = %d, want 2", summary.TasksAnswered)
	}
	if summary.CorrectAnswers != 1 {
		t.Errorf("summary.correctAnswers = %d, want 1", summary.CorrectAnswers)
	}

	// The run is over; answering again is rejected.
	rec, _ = doJSON(t, h.Answer, http.MethodPost, "/api/exercise/answer",
		map[string]string{"answer": "CorrectAnswer1"}, cookies)
	if rec.Code != http.StatusConflict {
		t.Errorf("Answer after end status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestExerciseStartWithNoTasks(t *testing.T) {
	h := newTestExerciseHandler()

	rec, _ := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "spelling"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Start status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestExerciseRequiresSession(t *testing.T) {
	h := newTestExerciseHandler()

	rec, _ := doJSON(t, h.Answer, http.MethodPost, "/api/exercise/answer",
		map[string]string{"answer": "x"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Answer without session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestExerciseHighlightToggle(t *testing.T) {
	h := newTestExerciseHandler()

	_, cookies := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "punctuation", "topic": "Tema"}, nil)

	// "Task 1" has a single space at byte 4.
	rec, cookies := doJSON(t, h.ToggleHighlight, http.MethodPost, "/api/exercise/highlight",
		map[string]int{"spaceIndex": 4}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("ToggleHighlight status = %d, body %s", rec.Code, rec.Body.String())
	}

	var state stateView
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if len(state.CurrentTask.Highlights) != 1 || !state.CurrentTask.Highlights[0].IsSelected {
		t.Errorf("highlights = %+v, want index 4 selected", state.CurrentTask.Highlights)
	}

	rec, _ = doJSON(t, h.ToggleHighlight, http.MethodPost, "/api/exercise/highlight",
		map[string]int{"spaceIndex": 2}, cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ToggleHighlight(2) status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestExerciseRestartReturnsToIdle(t *testing.T) {
	h := newTestExerciseHandler()

	_, cookies := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "punctuation", "topic": "Tema"}, nil)
	rec, cookies := doJSON(t, h.Restart, http.MethodPost, "/api/exercise/restart", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("Restart status = %d", rec.Code)
	}

	var state stateView
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if state.Phase != "idle" {
		t.Errorf("phase = %q, want idle", state.Phase)
	}
	if state.Score != 0 {
		t.Errorf("score = %d, want 0", state.Score)
	}

	rec, _ = doJSON(t, h.Answer, http.MethodPost, "/api/exercise/answer",
		map[string]string{"answer": "CorrectAnswer1"}, cookies)
	if rec.Code != http.StatusConflict {
		t.Errorf("Answer while idle status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestTaskViewHidesAnswers(t *testing.T) {
	h := newTestExerciseHandler()

	rec, _ := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "punctuation", "topic": "Tema"}, nil)

	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	task, ok := raw["currentTask"].(map[string]interface{})
	if !ok {
		t.Fatal("currentTask missing from state payload")
	}
	if _, present := task["correctAnswer"]; present {
		t.Error("task payload leaks correctAnswer")
	}
	if _, present := task["explanation"]; present {
		t.Error("task payload leaks explanation")
	}
}

func TestSweepStaleDropsAbandonedRuns(t *testing.T) {
	h := newTestExerciseHandler()

	rec, cookies := doJSON(t, h.Start, http.MethodPost, "/api/exercise/start",
		map[string]string{"taskType": "punctuation", "topic": "Tema"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Start status = %d, want %d", rec.Code, http.StatusOK)
	}

	if n := h.SweepStale(time.Hour); n != 0 {
		t.Fatalf("SweepStale() removed %d fresh runs, want 0", n)
	}

	h.mu.Lock()
	for _, ps := range h.sessions {
		ps.touched = time.Now().Add(-2 * time.Hour)
	}
	h.mu.Unlock()

	if n := h.SweepStale(time.Hour); n != 1 {
		t.Fatalf("SweepStale() = %d, want 1", n)
	}

	rec, _ = doJSON(t, h.State, http.MethodGet, "/api/exercise/state", nil, cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("State after sweep status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
