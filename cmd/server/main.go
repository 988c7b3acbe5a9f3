package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/GustasGrieze/Gramatikonas/internal/config"
	"github.com/GustasGrieze/Gramatikonas/internal/database"
	"github.com/GustasGrieze/Gramatikonas/internal/handlers"
	"github.com/GustasGrieze/Gramatikonas/internal/repository"
	"github.com/GustasGrieze/Gramatikonas/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	practiceRepo := repository.NewPracticeRepository(db)

	// Services
	userService := service.NewUserService(userRepo, practiceRepo)
	authService := service.NewAuthService(userRepo, userRepo, userService, cfg.SessionDuration, cfg.AdminEmails)
	uploadService := service.NewUploadService(taskRepo)
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	googleOAuth := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}

	// Handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, userService, emailService, googleOAuth, cfg.OAuthRedirectBase)
	taskHandler := handlers.NewTaskHandler(uploadService)
	exerciseHandler := handlers.NewExerciseHandler(uploadService, userService)
	adminHandler := handlers.NewAdminHandler(uploadService, userService, cfg.UploadMaxSize)
	leaderboardHandler := handlers.NewLeaderboardHandler(userService)

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Auth
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/guest", authHandler.GuestLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", middleware.RequireAuth(authHandler.Me)).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/forgot-password", authHandler.ForgotPassword).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/reset-password", authHandler.ResetPassword).Methods(http.MethodPost)
	router.HandleFunc("/auth/google/start", authHandler.StartGoogleOAuth).Methods(http.MethodGet)
	router.HandleFunc("/auth/google/callback", authHandler.GoogleOAuthCallback).Methods(http.MethodGet)

	// Task catalog
	router.HandleFunc("/api/tasks", taskHandler.ListTasks).Methods(http.MethodGet)
	router.HandleFunc("/api/tasks/topics", taskHandler.ListTopics).Methods(http.MethodGet)

	// Exercise sessions, open to guests
	router.HandleFunc("/api/exercise/start", middleware.OptionalAuth(exerciseHandler.Start)).Methods(http.MethodPost)
	router.HandleFunc("/api/exercise/state", middleware.OptionalAuth(exerciseHandler.State)).Methods(http.MethodGet)
	router.HandleFunc("/api/exercise/answer", middleware.OptionalAuth(exerciseHandler.Answer)).Methods(http.MethodPost)
	router.HandleFunc("/api/exercise/next", middleware.OptionalAuth(exerciseHandler.Next)).Methods(http.MethodPost)
	router.HandleFunc("/api/exercise/highlight", middleware.OptionalAuth(exerciseHandler.ToggleHighlight)).Methods(http.MethodPost)
	router.HandleFunc("/api/exercise/end", middleware.OptionalAuth(exerciseHandler.End)).Methods(http.MethodPost)
	router.HandleFunc("/api/exercise/restart", middleware.OptionalAuth(exerciseHandler.Restart)).Methods(http.MethodPost)

	// Leaderboards and history
	router.HandleFunc("/api/leaderboard/{board}", leaderboardHandler.Board).Methods(http.MethodGet)
	router.HandleFunc("/api/practice/history", middleware.RequireAuth(leaderboardHandler.History)).Methods(http.MethodGet)

	// Admin
	router.HandleFunc("/api/admin/users", middleware.RequireAdmin(adminHandler.ListUsers)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/tasks/upload", middleware.RequireAdmin(adminHandler.UploadTasks)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/tasks/{id}", middleware.RequireAdmin(adminHandler.DeleteTask)).Methods(http.MethodDelete)
	router.HandleFunc("/api/admin/users/{id}/promote", middleware.RequireAdmin(adminHandler.PromoteUser)).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/users/{id}/demote", middleware.RequireAdmin(adminHandler.DemoteUser)).Methods(http.MethodPost)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppBaseURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	handler := handlers.Logging(corsMiddleware.Handler(router))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupExpiredSessions(authService, exerciseHandler)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired login sessions and
// abandoned exercise runs
func cleanupExpiredSessions(authService *service.AuthService, exerciseHandler *handlers.ExerciseHandler) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		n, err := authService.CleanupExpiredSessions()
		if err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		} else if n > 0 {
			log.Printf("Cleaned up %d expired sessions", n)
		}
		if dropped := exerciseHandler.SweepStale(24 * time.Hour); dropped > 0 {
			log.Printf("Dropped %d abandoned exercise runs", dropped)
		}
	}
}
