package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/database"
	"github.com/studybuddy/studybuddy-api/internal/http/handler"
	"github.com/studybuddy/studybuddy-api/internal/http/middleware"
	"github.com/studybuddy/studybuddy-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/studybuddy/studybuddy-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	sessionHandler *handler.SessionHandler
	messageHandler *handler.MessageHandler
	adminHandler   *handler.AdminHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	sessionHandler *handler.SessionHandler,
	messageHandler *handler.MessageHandler,
	adminHandler *handler.AdminHandler,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		authHandler:    authHandler,
		userHandler:    userHandler,
		sessionHandler: sessionHandler,
		messageHandler: messageHandler,
		adminHandler:   adminHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware. Logging runs first so panics are logged with their request id.
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	r.Handle("/metrics", metrics.Handler())

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	timeout := func(next http.Handler) http.Handler { return next }
	if d := rt.cfg.Server.RequestTimeoutDuration(); d > 0 {
		timeout = chimw.Timeout(d)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(rt.rateLimiter.LimitAuth)
				r.Use(timeout)

				r.Post("/register", rt.authHandler.Register)
				r.Post("/login", rt.authHandler.Login)
				r.Post("/forgot-password", rt.authHandler.ForgotPassword)
				r.Post("/reset-password", rt.authHandler.ResetPassword)
				r.Get("/verify-email/{token}", rt.authHandler.VerifyEmail)
			})

			r.With(rt.authMiddleware.Authenticate, middleware.CaptureUser).Get("/me", rt.authHandler.Me)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(middleware.CaptureUser)
			r.Use(rt.rateLimiter.Limit)

			// Realtime stream stays open beyond the request timeout
			r.Get("/sessions/{id}/messages/ws", rt.messageHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(timeout)

				r.Route("/users", func(r chi.Router) {
					r.Get("/profile", rt.userHandler.GetProfile)
					r.Put("/profile", rt.userHandler.UpdateProfile)
					r.Post("/profile/avatar", rt.userHandler.UploadAvatar)
					r.Get("/sessions", rt.userHandler.ListSessions)
					r.Get("/stats", rt.userHandler.Stats)
					r.Get("/search", rt.userHandler.Search)
					r.Get("/{id}", rt.userHandler.GetPublicProfile)
					r.Get("/{id}/avatar", rt.userHandler.GetAvatar)
				})

				r.Get("/sessions", rt.sessionHandler.ListSessions)
				r.Post("/sessions", rt.sessionHandler.CreateSession)
				r.Get("/sessions/{id}", rt.sessionHandler.GetSession)
				r.Put("/sessions/{id}", rt.sessionHandler.UpdateSession)
				r.Delete("/sessions/{id}", rt.sessionHandler.CancelSession)
				r.Post("/sessions/{id}/join", rt.sessionHandler.JoinSession)
				r.Post("/sessions/{id}/leave", rt.sessionHandler.LeaveSession)
				r.Get("/sessions/{id}/messages", rt.messageHandler.ListMessages)
				r.Post("/sessions/{id}/messages", rt.messageHandler.SendMessage)
			})
		})

		// Maintenance endpoints, refused in production by the admin service
		r.Route("/admin", func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireAPIKey)
			r.Use(timeout)

			r.Post("/test-user", rt.adminHandler.CreateTestUser)
			r.Post("/create-test-user", rt.adminHandler.CreateTestUser)
			r.Post("/init-db", rt.adminHandler.InitDatabase)
			r.Get("/users", rt.adminHandler.ListUsers)
		})
	})

	return r
}

// databaseHealth reports connection pool statistics
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks every dependency the API needs to serve traffic
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{}
	status := http.StatusOK

	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]string{"status": "unhealthy", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]string{"status": "healthy"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeHealth(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
