package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/fittrack/internal/handler"
	"github.com/dukerupert/fittrack/internal/middleware"
	"github.com/dukerupert/fittrack/internal/store"
	"github.com/dukerupert/fittrack/web"
)

// Options carries the settings the server needs from config.
type Options struct {
	SecureCookies   bool
	DefaultTimezone string
}

// confirmTTL is how long a delete confirmation stays valid.
const confirmTTL = 10 * time.Minute

type Server struct {
	db           *sql.DB
	renderer     *handler.Renderer
	authH        *handler.AuthHandler
	pageH        *handler.PageHandler
	profileH     *handler.ProfileHandler
	apiH         *handler.APIHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	actions      *handler.ActionTracker
	logger       *slog.Logger
}

// New wires the handlers. db holds accounts, sessions and preferences; data
// supplies the habit and log tables, which may live in another database.
func New(db *sql.DB, data handler.Data, opts Options, logger *slog.Logger) (*Server, error) {
	renderer, err := handler.NewRenderer(logger.With("component", "render"))
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	notificationStore := store.NewNotificationStore(db)
	actions := handler.NewActionTracker(confirmTTL)

	return &Server{
		db:           db,
		renderer:     renderer,
		authH:        handler.NewAuthHandler(userStore, sessionStore, renderer, opts.SecureCookies, opts.DefaultTimezone, logger.With("component", "auth")),
		pageH:        handler.NewPageHandler(data, renderer, actions, logger.With("component", "pages")),
		profileH:     handler.NewProfileHandler(userStore, notificationStore, data, renderer, logger.With("component", "profile")),
		apiH:         handler.NewAPIHandler(data, actions, logger.With("component", "api")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		actions:      actions,
		logger:       logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Actions returns the in-flight action tracker for cleanup tasks.
func (s *Server) Actions() *handler.ActionTracker {
	return s.actions
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /{$}", s.authH.Landing)
	outerMux.HandleFunc("GET /login", s.authH.LoginPage)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /register", s.authH.RegisterPage)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	static, _ := fs.Sub(web.Static, "static")
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	protected := authMiddleware(protectedMux)
	outerMux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown paths get the 404 page, signed in or not.
		if _, pattern := protectedMux.Handler(r); pattern == "" {
			s.renderer.NotFound(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestLogger(httpLogger)(middleware.Recoverer(httpLogger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimitedHandler allows 10 submissions per minute per client IP.
func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	return middleware.RateLimit(s.rateLimiter, middleware.ByIP, 10, time.Minute)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Pages
	mux.HandleFunc("GET /dashboard", s.pageH.Dashboard)
	mux.HandleFunc("GET /habits", s.pageH.HabitsList)
	mux.HandleFunc("GET /habits/new", s.pageH.NewHabit)
	mux.HandleFunc("POST /habits", s.pageH.CreateHabit)
	mux.HandleFunc("GET /habits/{id}", s.pageH.HabitDetail)
	mux.HandleFunc("POST /habits/{id}", s.pageH.UpdateHabit)
	mux.HandleFunc("POST /habits/{id}/complete", s.pageH.Complete)
	mux.HandleFunc("POST /habits/{id}/logs", s.pageH.LogHabit)
	mux.HandleFunc("POST /habits/{id}/archive", s.pageH.Archive)
	mux.HandleFunc("POST /habits/{id}/restore", s.pageH.Restore)
	mux.HandleFunc("GET /habits/{id}/delete", s.pageH.DeleteConfirm)
	mux.HandleFunc("GET /habits/{id}/delete/cancel", s.pageH.DeleteCancel)
	mux.HandleFunc("POST /habits/{id}/delete", s.pageH.Delete)
	mux.HandleFunc("POST /logs/{id}/undo", s.pageH.Undo)
	mux.HandleFunc("GET /analytics", s.pageH.Analytics)

	// Profile and settings
	mux.HandleFunc("GET /profile", s.profileH.Profile)
	mux.HandleFunc("POST /profile", s.profileH.UpdateProfile)
	mux.HandleFunc("GET /profile/export", s.profileH.Export)
	mux.HandleFunc("GET /settings/notifications", s.profileH.Notifications)
	mux.HandleFunc("POST /settings/notifications", s.profileH.SaveNotifications)

	// API routes
	mux.HandleFunc("GET /api/habits", s.apiH.ListHabits)
	mux.HandleFunc("POST /api/habits", s.apiH.CreateHabit)
	mux.HandleFunc("GET /api/habits/{id}", s.apiH.GetHabit)
	mux.HandleFunc("PATCH /api/habits/{id}", s.apiH.UpdateHabit)
	mux.HandleFunc("DELETE /api/habits/{id}", s.apiH.DeleteHabit)
	mux.HandleFunc("POST /api/habits/{id}/archive", s.apiH.ArchiveHabit)
	mux.HandleFunc("POST /api/habits/{id}/restore", s.apiH.RestoreHabit)
	mux.HandleFunc("POST /api/habits/{id}/logs", s.apiH.LogCompletion)
	mux.HandleFunc("GET /api/logs", s.apiH.ListLogs)
	mux.HandleFunc("GET /api/logs/today", s.apiH.ListTodayLogs)
	mux.HandleFunc("DELETE /api/logs/{id}", s.apiH.UndoLog)
	mux.HandleFunc("GET /api/dashboard", s.apiH.Dashboard)
}
