package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studybuddy/studybuddy-api/docs"
	"github.com/studybuddy/studybuddy-api/internal/auth"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"github.com/studybuddy/studybuddy-api/internal/database"
	"github.com/studybuddy/studybuddy-api/internal/email"
	"github.com/studybuddy/studybuddy-api/internal/http/handler"
	"github.com/studybuddy/studybuddy-api/internal/http/middleware"
	"github.com/studybuddy/studybuddy-api/internal/http/router"
	"github.com/studybuddy/studybuddy-api/internal/jobs"
	"github.com/studybuddy/studybuddy-api/internal/logger"
	"github.com/studybuddy/studybuddy-api/internal/realtime"
	"github.com/studybuddy/studybuddy-api/internal/repository"
	"github.com/studybuddy/studybuddy-api/internal/service"
	"github.com/studybuddy/studybuddy-api/internal/storage"
	"go.uber.org/zap"
)

// @title StudyBuddy API
// @version 1.0
// @description Backend for Session Buddy Hub: study sessions, participants and session chat
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@sessionbuddyhub.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for maintenance operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration is enough to set up logging
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Secrets come from the environment in development and Key Vault elsewhere
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	avatarStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	renderer, err := email.NewRenderer(cfg.Email.FromName, cfg.App.FrontendURL)
	if err != nil {
		return fmt.Errorf("failed to load email templates: %w", err)
	}
	sender, err := email.NewSender(&cfg.Email, log)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}
	mailer := email.NewMailer(renderer, sender, log)

	hub := realtime.NewHub(middleware.WebSocketOrigins(&cfg.CORS, cfg.App.Environment), log)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Services
	tokens := auth.NewTokenManager(&cfg.JWT)
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost)

	authService := service.NewAuthService(userRepo, hasher, tokens, mailer, log)
	messageService := service.NewMessageService(sessionRepo, participantRepo, messageRepo, hub, log)
	sessionService := service.NewSessionService(sessionRepo, participantRepo, userRepo, messageService, mailer, log)
	userService := service.NewUserService(userRepo, sessionRepo, participantRepo, messageRepo, avatarStorage, log)
	adminService := service.NewAdminService(userRepo, hasher, func(context.Context) error {
		return database.RunMigrations(db)
	}, cfg.App.IsProduction(), log)

	// Middleware
	authMiddleware := auth.NewMiddleware(tokens, userRepo, cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		handler.NewAuthHandler(authService, log),
		handler.NewUserHandler(userService, cfg.Storage.MaxUploadSizeMB, log),
		handler.NewSessionHandler(sessionService, log),
		handler.NewMessageHandler(messageService, hub, log),
		handler.NewAdminHandler(adminService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log, cfg.Jobs.TimeoutDuration())

		reminder := jobs.NewReminderJob(sessionRepo, participantRepo, userRepo, mailer, cfg.Jobs.ReminderLeadDuration(), log)
		if err := scheduler.AddJob(jobs.ReminderJobName, cfg.Jobs.ReminderCron, reminder.Run); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
		completion := jobs.NewCompletionJob(sessionRepo, log)
		if err := scheduler.AddJob(jobs.CompletionJobName, cfg.Jobs.CompletionCron, completion.Run); err != nil {
			return fmt.Errorf("failed to register completion job: %w", err)
		}

		scheduler.Start()
		log.Info("Scheduler started",
			zap.String("reminder_cron", cfg.Jobs.ReminderCron),
			zap.String("completion_cron", cfg.Jobs.CompletionCron),
			zap.Duration("timeout", cfg.Jobs.TimeoutDuration()),
		)
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		// Websocket connections are hijacked and not tracked by Shutdown
		hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := database.Close(db); err != nil {
			log.Warn("Error closing database connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
