package handlers

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/GustasGrieze/Gramatikonas/internal/models"
	"github.com/GustasGrieze/Gramatikonas/internal/security"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

// AuthHandler serves registration, login and account endpoints.
type AuthHandler struct {
	authService      *service.AuthService
	userService      *service.UserService
	emailService     *service.EmailService
	googleOAuth      *oauth2.Config
	oauthRedirectURL string
}

// NewAuthHandler creates a new auth handler. googleOAuth may be nil when
// Google sign-in is not configured.
func NewAuthHandler(authService *service.AuthService, userService *service.UserService, emailService *service.EmailService, googleOAuth *oauth2.Config, oauthRedirectURL string) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		userService:      userService,
		emailService:     emailService,
		googleOAuth:      googleOAuth,
		oauthRedirectURL: oauthRedirectURL,
	}
}

// userView is the public JSON shape of a user
type userView struct {
	ID                    int64  `json:"id"`
	Email                 string `json:"email,omitempty"`
	DisplayName           string `json:"displayName"`
	Role                  string `json:"role"`
	HighScore             int    `json:"highScore"`
	TotalLessonsCompleted int    `json:"totalLessonsCompleted"`
	TotalStudyTimeSeconds int64  `json:"totalStudyTimeSeconds"`
	TotalAttempts         int    `json:"totalAttempts"`
	CorrectAnswers        int    `json:"correctAnswers"`
	CurrentStreak         int    `json:"currentStreak"`
	BestStreak            int    `json:"bestStreak"`
	LastLoginAt           string `json:"lastLoginAt,omitempty"`
}

func newUserView(u *models.User) userView {
	v := userView{
		ID:                    u.ID,
		Email:                 u.Email,
		DisplayName:           u.DisplayName,
		Role:                  string(u.Role),
		HighScore:             u.HighScore,
		TotalLessonsCompleted: u.TotalLessonsCompleted,
		TotalStudyTimeSeconds: int64(u.TotalStudyTime.Seconds()),
		TotalAttempts:         u.TotalAttempts,
		CorrectAnswers:        u.CorrectAnswers,
		CurrentStreak:         u.CurrentStreak,
		BestStreak:            u.BestStreak,
	}
	if !u.LastLoginAt.IsZero() {
		v.LastLoginAt = u.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return v
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, sessionCookieName, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, newUserView(user))
}

// GuestLogin handles POST /api/auth/guest. Guests get an ephemeral
// identity with no server-side session or persistence.
func (h *AuthHandler) GuestLogin(w http.ResponseWriter, r *http.Request) {
	guest := h.userService.CreateGuestUser()
	writeJSON(w, http.StatusOK, newUserView(guest))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(cookie.Value); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, sessionCookieName))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// ForgotPassword handles POST /api/auth/forgot-password. Always responds
// with 200 so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing reset token")
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
