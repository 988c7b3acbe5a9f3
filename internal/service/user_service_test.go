package service

import (
	"errors"
	"testing"
	"time"

	"github.com/GustasGrieze/Gramatikonas/internal/exercise"
	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/validation"
)

type fakeUserStore struct {
	users       map[int64]*models.User
	updateCalls int
	updateErr   error
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[int64]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) CreateUser(user *models.User) error {
	user.ID = int64(len(s.users) + 1)
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetUserByID(id int64) (*models.User, error) {
	return s.users[id], nil
}

func (s *fakeUserStore) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) GetUserByGoogleID(googleID string) (*models.User, error) {
	for _, u := range s.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) UpdateUser(user *models.User) error {
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) ListUsers(limit int) ([]models.User, error)             { return nil, nil }
func (s *fakeUserStore) TopByHighScore(limit int) ([]models.User, error)        { return nil, nil }
func (s *fakeUserStore) TopByCurrentStreak(limit int) ([]models.User, error)    { return nil, nil }
func (s *fakeUserStore) TopByBestStreak(limit int) ([]models.User, error)       { return nil, nil }
func (s *fakeUserStore) TopByLessonsCompleted(limit int) ([]models.User, error) { return nil, nil }

type fakePracticeStore struct {
	sessions map[int64][]models.PracticeSession
}

func newFakePracticeStore() *fakePracticeStore {
	return &fakePracticeStore{sessions: make(map[int64][]models.PracticeSession)}
}

func (s *fakePracticeStore) AppendSession(userID int64, session *models.PracticeSession) error {
	session.UserID = userID
	s.sessions[userID] = append(s.sessions[userID], *session)
	return nil
}

func (s *fakePracticeStore) GetSessionsForUser(userID int64, limit int) ([]models.PracticeSession, error) {
	out := s.sessions[userID]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestUserService(store *fakeUserStore, at time.Time) *UserService {
	svc := NewUserService(store, newFakePracticeStore())
	svc.now = func() time.Time { return at }
	return svc
}

func TestUpdateUserStats(t *testing.T) {
	user := &models.User{ID: 1, Role: models.RoleRegistered, HighScore: 50, TotalLessonsCompleted: 5}
	store := newFakeUserStore(user)
	svc := newTestUserService(store, time.Now())

	summary := &exercise.Summary{Score: 80, TasksAnswered: 2, CorrectAnswers: 2, TotalQuestions: 2}
	if err := svc.UpdateUserStats(user, summary); err != nil {
		t.Fatalf("UpdateUserStats() error = %v", err)
	}

	if user.HighScore != 80 {
		t.Errorf("HighScore = %d, want 80", user.HighScore)
	}
	if user.TotalLessonsCompleted != 7 {
		t.Errorf("TotalLessonsCompleted = %d, want 7", user.TotalLessonsCompleted)
	}
	if store.updateCalls != 1 {
		t.Errorf("UpdateUser called %d times, want 1", store.updateCalls)
	}
}

func TestUpdateUserStatsKeepsHigherScore(t *testing.T) {
	user := &models.User{ID: 1, Role: models.RoleRegistered, HighScore: 100, TotalLessonsCompleted: 3}
	store := newFakeUserStore(user)
	svc := newTestUserService(store, time.Now())

	if err := svc.UpdateUserStats(user, &exercise.Summary{Score: 40, TasksAnswered: 1}); err != nil {
		t.Fatalf("UpdateUserStats() error = %v", err)
	}
	if user.HighScore != 100 {
		t.Errorf("HighScore = %d, want 100", user.HighScore)
	}
	if user.TotalLessonsCompleted != 4 {
		t.Errorf("TotalLessonsCompleted = %d, want 4", user.TotalLessonsCompleted)
	}
}

func TestUpdateUserStatsSkipsGuests(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestUserService(store, time.Now())

	guest := svc.CreateGuestUser()
	if err := svc.UpdateUserStats(guest, &exercise.Summary{Score: 80, TasksAnswered: 2}); err != nil {
		t.Fatalf("UpdateUserStats(guest) error = %v", err)
	}
	if err := svc.UpdateUserStats(nil, &exercise.Summary{Score: 80}); err != nil {
		t.Fatalf("UpdateUserStats(nil) error = %v", err)
	}
	if store.updateCalls != 0 {
		t.Errorf("UpdateUser called %d times for guest/nil user, want 0", store.updateCalls)
	}
}

func TestUpdateUserHighScore(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		score       int
		want        int
		wantUpdates int
	}{
		{"higher score wins", 50, 80, 80, 1},
		{"equal score does not write", 50, 50, 50, 0},
		{"lower score does not write", 50, 20, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{ID: 1, Role: models.RoleRegistered, HighScore: tt.current}
			store := newFakeUserStore(user)
			svc := newTestUserService(store, time.Now())

			if err := svc.UpdateUserHighScore(user, tt.score); err != nil {
				t.Fatalf("UpdateUserHighScore() error = %v", err)
			}
			if user.HighScore != tt.want {
				t.Errorf("HighScore = %d, want %d", user.HighScore, tt.want)
			}
			if store.updateCalls != tt.wantUpdates {
				t.Errorf("UpdateUser called %d times, want %d", store.updateCalls, tt.wantUpdates)
			}
		})
	}
}

func TestRecordLoginStreak(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastLogin   time.Time
		current     int
		best        int
		wantCurrent int
		wantBest    int
	}{
		{
			name:        "consecutive day extends streak",
			lastLogin:   now.AddDate(0, 0, -1),
			current:     3,
			best:        5,
			wantCurrent: 4,
			wantBest:    5,
		},
		{
			name:        "new best streak",
			lastLogin:   now.AddDate(0, 0, -1),
			current:     5,
			best:        5,
			wantCurrent: 6,
			wantBest:    6,
		},
		{
			name:        "gap resets to one",
			lastLogin:   now.AddDate(0, 0, -3),
			current:     7,
			best:        9,
			wantCurrent: 1,
			wantBest:    9,
		},
		{
			name:        "same day leaves streak untouched",
			lastLogin:   now.Add(-2 * time.Hour),
			current:     4,
			best:        4,
			wantCurrent: 4,
			wantBest:    4,
		},
		{
			name:        "first login starts streak",
			wantCurrent: 1,
			wantBest:    1,
		},
		{
			name:        "late evening to early morning counts as consecutive",
			lastLogin:   time.Date(2024, 3, 14, 23, 50, 0, 0, time.UTC),
			current:     1,
			best:        2,
			wantCurrent: 2,
			wantBest:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{
				ID:            1,
				Role:          models.RoleRegistered,
				CurrentStreak: tt.current,
				BestStreak:    tt.best,
				LastLoginAt:   tt.lastLogin,
			}
			store := newFakeUserStore(user)
			svc := newTestUserService(store, now)

			if err := svc.RecordLoginStreak(user); err != nil {
				t.Fatalf("RecordLoginStreak() error = %v", err)
			}
			if user.CurrentStreak != tt.wantCurrent {
				t.Errorf("CurrentStreak = %d, want %d", user.CurrentStreak, tt.wantCurrent)
			}
			if user.BestStreak != tt.wantBest {
				t.Errorf("BestStreak = %d, want %d", user.BestStreak, tt.wantBest)
			}
			if !user.LastLoginAt.Equal(now) {
				t.Errorf("LastLoginAt = %v, want %v", user.LastLoginAt, now)
			}
			if store.updateCalls != 1 {
				t.Errorf("UpdateUser called %d times, want 1", store.updateCalls)
			}
		})
	}
}

func TestRecordLoginStreakAlwaysStampsLogin(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:            1,
		Role:          models.RoleRegistered,
		CurrentStreak: 2,
		BestStreak:    2,
		LastLoginAt:   now.Add(-6 * time.Hour),
	}
	svc := newTestUserService(newFakeUserStore(user), now)

	if err := svc.RecordLoginStreak(user); err != nil {
		t.Fatalf("RecordLoginStreak() error = %v", err)
	}
	if !user.LastLoginAt.Equal(now) {
		t.Errorf("LastLoginAt = %v, want %v", user.LastLoginAt, now)
	}
}

func TestRecordPracticeSession(t *testing.T) {
	user := &models.User{
		ID:             1,
		Role:           models.RoleRegistered,
		TotalAttempts:  10,
		CorrectAnswers: 8,
		TotalStudyTime: 5 * time.Minute,
	}
	store := newFakeUserStore(user)
	history := newFakePracticeStore()
	svc := NewUserService(store, history)

	session := &models.PracticeSession{
		TaskKind:       models.TaskPunctuation,
		Topic:          "Dalyviai",
		Score:          40,
		TotalQuestions: 2,
		CorrectAnswers: 2,
		Duration:       90 * time.Second,
		CompletedAt:    time.Now(),
	}
	if err := svc.RecordPracticeSession(user, session); err != nil {
		t.Fatalf("RecordPracticeSession() error = %v", err)
	}

	if user.TotalAttempts != 12 {
		t.Errorf("TotalAttempts = %d, want 12", user.TotalAttempts)
	}
	if user.CorrectAnswers != 10 {
		t.Errorf("CorrectAnswers = %d, want 10", user.CorrectAnswers)
	}
	if want := 5*time.Minute + 90*time.Second; user.TotalStudyTime != want {
		t.Errorf("TotalStudyTime = %v, want %v", user.TotalStudyTime, want)
	}

	saved, err := svc.GetPracticeHistory(user.ID)
	if err != nil {
		t.Fatalf("GetPracticeHistory() error = %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("history has %d sessions, want 1", len(saved))
	}
	if saved[0].Score != 40 {
		t.Errorf("saved session score = %d, want 40", saved[0].Score)
	}
}

func TestRecordPracticeSessionNilSession(t *testing.T) {
	user := &models.User{ID: 1, Role: models.RoleRegistered}
	svc := NewUserService(newFakeUserStore(user), newFakePracticeStore())

	err := svc.RecordPracticeSession(user, nil)
	var vErr validation.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("RecordPracticeSession(nil) error = %v, want ValidationError", err)
	}
}

func TestRecordPracticeSessionSkipsGuests(t *testing.T) {
	store := newFakeUserStore()
	history := newFakePracticeStore()
	svc := NewUserService(store, history)

	guest := svc.CreateGuestUser()
	session := &models.PracticeSession{Score: 20, TotalQuestions: 1, CompletedAt: time.Now()}
	if err := svc.RecordPracticeSession(guest, session); err != nil {
		t.Fatalf("RecordPracticeSession(guest) error = %v", err)
	}
	if store.updateCalls != 0 {
		t.Errorf("UpdateUser called %d times for guest, want 0", store.updateCalls)
	}
	if len(history.sessions) != 0 {
		t.Errorf("guest session persisted, want none")
	}
}

func TestPersistenceFailurePropagates(t *testing.T) {
	storeErr := errors.New("storage unavailable")

	t.Run("UpdateUserStats", func(t *testing.T) {
		user := &models.User{ID: 1, Role: models.RoleRegistered, HighScore: 50, TotalLessonsCompleted: 5}
		store := newFakeUserStore(user)
		store.updateErr = storeErr
		svc := newTestUserService(store, time.Now())

		err := svc.UpdateUserStats(user, &exercise.Summary{Score: 80, TasksAnswered: 2})
		if !errors.Is(err, storeErr) {
			t.Fatalf("UpdateUserStats() error = %v, want wrapped %v", err, storeErr)
		}
		if user.HighScore != 80 {
			t.Errorf("HighScore = %d, want 80 despite the failed write", user.HighScore)
		}
		if user.TotalLessonsCompleted != 7 {
			t.Errorf("TotalLessonsCompleted = %d, want 7 despite the failed write", user.TotalLessonsCompleted)
		}
	})

	t.Run("RecordLoginStreak", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		user := &models.User{
			ID:            1,
			Role:          models.RoleRegistered,
			CurrentStreak: 3,
			BestStreak:    5,
			LastLoginAt:   now.AddDate(0, 0, -1),
		}
		store := newFakeUserStore(user)
		store.updateErr = storeErr
		svc := newTestUserService(store, now)

		err := svc.RecordLoginStreak(user)
		if !errors.Is(err, storeErr) {
			t.Fatalf("RecordLoginStreak() error = %v, want wrapped %v", err, storeErr)
		}
		if user.CurrentStreak != 4 {
			t.Errorf("CurrentStreak = %d, want 4 despite the failed write", user.CurrentStreak)
		}
		if !user.LastLoginAt.Equal(now) {
			t.Errorf("LastLoginAt = %v, want %v", user.LastLoginAt, now)
		}
	})

	t.Run("RecordPracticeSession", func(t *testing.T) {
		user := &models.User{ID: 1, Role: models.RoleRegistered, TotalAttempts: 10, CorrectAnswers: 8}
		store := newFakeUserStore(user)
		store.updateErr = storeErr
		svc := NewUserService(store, newFakePracticeStore())

		session := &models.PracticeSession{Score: 40, TotalQuestions: 2, CorrectAnswers: 2, CompletedAt: time.Now()}
		err := svc.RecordPracticeSession(user, session)
		if !errors.Is(err, storeErr) {
			t.Fatalf("RecordPracticeSession() error = %v, want wrapped %v", err, storeErr)
		}
		if user.TotalAttempts != 12 {
			t.Errorf("TotalAttempts = %d, want 12 despite the failed write", user.TotalAttempts)
		}
		if user.CorrectAnswers != 10 {
			t.Errorf("CorrectAnswers = %d, want 10 despite the failed write", user.CorrectAnswers)
		}
	})
}

func TestPromoteAndDemote(t *testing.T) {
	user := &models.User{ID: 1, Role: models.RoleRegistered}
	store := newFakeUserStore(user)
	svc := NewUserService(store, newFakePracticeStore())

	ok, err := svc.PromoteToAdmin(1)
	if err != nil || !ok {
		t.Fatalf("PromoteToAdmin() = %v, %v, want true, nil", ok, err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want %q", user.Role, models.RoleAdmin)
	}

	ok, err = svc.DemoteFromAdmin(1)
	if err != nil || !ok {
		t.Fatalf("DemoteFromAdmin() = %v, %v, want true, nil", ok, err)
	}
	if user.Role != models.RoleRegistered {
		t.Errorf("Role = %q, want %q", user.Role, models.RoleRegistered)
	}

	ok, err = svc.PromoteToAdmin(42)
	if err != nil {
		t.Fatalf("PromoteToAdmin(missing) error = %v", err)
	}
	if ok {
		t.Error("PromoteToAdmin(missing) = true, want false")
	}
}

func TestCreateGuestUser(t *testing.T) {
	svc := NewUserService(newFakeUserStore(), newFakePracticeStore())

	guest := svc.CreateGuestUser()
	if !guest.IsGuest() {
		t.Error("guest user is not recognized as guest")
	}
	other := svc.CreateGuestUser()
	if guest.GoogleID == other.GoogleID {
		t.Error("guest IDs are not unique")
	}
}
