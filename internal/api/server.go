// Package api mounts the HTTP surface of speakflowd.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/felixgeelhaar/speakflow/internal/api/handlers"
	"github.com/felixgeelhaar/speakflow/internal/api/middleware"
	"github.com/felixgeelhaar/speakflow/internal/observe"
)

// requestTimeout bounds a request, including inline grading of audio.
const requestTimeout = 3 * time.Minute

// Server wraps the chi router with the application's handlers
type Server struct {
	router *chi.Mux
	app    *App

	auth      *handlers.AuthHandler
	levels    *handlers.LevelHandler
	practice  *handlers.PracticeHandler
	dashboard *handlers.DashboardHandler
	ielts     *handlers.IELTSHandler
	credits   *handlers.CreditsHandler
}

// NewServer creates a new API server with all routes configured
func NewServer(app *App) (*Server, error) {
	if err := app.validate(); err != nil {
		return nil, err
	}

	secure := app.Config.SecureCookies()
	s := &Server{
		router:    chi.NewRouter(),
		app:       app,
		auth:      handlers.NewAuthHandler(app.Auth, secure),
		levels:    handlers.NewLevelHandler(),
		practice:  handlers.NewPracticeHandler(app.Practice, app.Voice, app.Results),
		dashboard: handlers.NewDashboardHandler(app.Practice, app.Profile),
		ielts:     handlers.NewIELTSHandler(app.Grader),
		credits:   handlers.NewCreditsHandler(app.Credits),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	cfg := s.app.Config

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recovery)
	s.router.Use(observe.Middleware(s.app.Metrics, routePattern))

	// Skip rate limiting in debug mode for easier development
	if !cfg.Debug {
		s.router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}

	s.router.Use(chimw.Timeout(requestTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	r := s.router
	requireAuth := middleware.RequireAuth(s.app.Auth, s.app.Config.SecureCookies())

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.app.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.app.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Reference data (public)
		r.Get("/levels", s.levels.List)
		r.Post("/levels/aggregate", s.levels.Aggregate)
		r.Get("/levels/{level}", s.levels.Get)
		r.Get("/levels/{level}/path", s.levels.Path)
		r.Get("/topics", s.levels.Topics)
		r.Get("/criteria", s.levels.Criteria)

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.auth.Register)
			r.Post("/session", s.auth.CreateSession)
			r.Delete("/session", s.auth.DeleteSession)
			r.With(requireAuth).Delete("/sessions", s.auth.DeleteAllSessions)
			r.With(requireAuth).Get("/me", s.auth.Me)
		})

		// Practice (requires auth)
		r.Route("/practice", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/assess-level", s.practice.AssessLevel)
			r.Post("/analyze", s.practice.Analyze)
			r.Get("/jobs/{id}", s.practice.Job)
			r.Get("/session-limit", s.practice.SessionLimit)
			r.Get("/voice-session", s.practice.VoiceSession)
		})

		// Dashboard (requires auth)
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/sessions", s.dashboard.Sessions)
			r.Get("/sessions/{id}", s.dashboard.Session)
			r.Get("/stats", s.dashboard.Stats)
		})

		r.Post("/ielts/analyze", s.ielts.Analyze)
		r.Get("/credits", s.credits.Get)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, r, "route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, http.StatusMethodNotAllowed,
			handlers.NewAPIError("METHOD_NOT_ALLOWED", "method not allowed"))
	})
}

// routePattern labels metrics with the matched chi pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.app.Store.Ping(ctx); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
		)
		handlers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
