package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

// LeaderboardHandler serves the public rankings and the caller's own
// practice history.
type LeaderboardHandler struct {
	userService *service.UserService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(userService *service.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{userService: userService}
}

// leaderboardEntry is one row of a ranking
type leaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"displayName"`
	Value       int    `json:"value"`
}

// Board handles GET /api/leaderboard/{board} where board is one of
// highscore, current-streak, best-streak or lessons.
func (h *LeaderboardHandler) Board(w http.ResponseWriter, r *http.Request) {
	board := mux.Vars(r)["board"]

	var (
		users []models.User
		err   error
		value func(*models.User) int
	)
	switch board {
	case "highscore":
		users, err = h.userService.TopByHighScore()
		value = func(u *models.User) int { return u.HighScore }
	case "current-streak":
		users, err = h.userService.TopByCurrentStreak()
		value = func(u *models.User) int { return u.CurrentStreak }
	case "best-streak":
		users, err = h.userService.TopByBestStreak()
		value = func(u *models.User) int { return u.BestStreak }
	case "lessons":
		users, err = h.userService.TopByLessonsCompleted()
		value = func(u *models.User) int { return u.TotalLessonsCompleted }
	default:
		writeError(w, http.StatusNotFound, "unknown leaderboard")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for i := range users {
		entries = append(entries, leaderboardEntry{
			Rank:        i + 1,
			DisplayName: users[i].DisplayName,
			Value:       value(&users[i]),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// practiceSessionView is the JSON shape of one history entry
type practiceSessionView struct {
	ID              int64   `json:"id"`
	TaskKind        string  `json:"taskKind"`
	Topic           string  `json:"topic,omitempty"`
	Score           int     `json:"score"`
	TotalQuestions  int     `json:"totalQuestions"`
	CorrectAnswers  int     `json:"correctAnswers"`
	Accuracy        float64 `json:"accuracy"`
	DurationSeconds float64 `json:"durationSeconds"`
	CompletedAt     string  `json:"completedAt"`
}

// History handles GET /api/me/history
func (h *LeaderboardHandler) History(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sessions, err := h.userService.GetPracticeHistory(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]practiceSessionView, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		views = append(views, practiceSessionView{
			ID:              s.ID,
			TaskKind:        string(s.TaskKind),
			Topic:           s.Topic,
			Score:           s.Score,
			TotalQuestions:  s.TotalQuestions,
			CorrectAnswers:  s.CorrectAnswers,
			Accuracy:        s.Accuracy(),
			DurationSeconds: s.Duration.Seconds(),
			CompletedAt:     s.CompletedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, views)
}
