package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/borderdesk/visatrack/internal/audit"
	"github.com/borderdesk/visatrack/internal/handlers"
	"github.com/borderdesk/visatrack/internal/mailer"
	"github.com/borderdesk/visatrack/internal/repository"
	"github.com/borderdesk/visatrack/internal/service"
	"github.com/borderdesk/visatrack/internal/sweeper"
	"github.com/borderdesk/visatrack/pkg/config"
	"github.com/borderdesk/visatrack/pkg/database"
	"github.com/borderdesk/visatrack/pkg/events"
	"github.com/borderdesk/visatrack/pkg/logger"
	mw "github.com/borderdesk/visatrack/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to redis (idempotency cache)
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Mirror lifecycle events into the log stream
	if err := audit.New(eventBus).Start(); err != nil {
		logger.Error("Failed to start audit listener", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	touristRepo := repository.NewTouristRepository(pool)
	officerRepo := repository.NewOfficerRepository(pool)

	// Initialize mailer
	mail := buildMailer(cfg)

	// Initialize services
	touristService := service.NewTouristService(touristRepo, mail, eventBus)

	// Start the daily reminder sweep
	sw := sweeper.New(touristService, cfg.Sweep.Hour, cfg.Sweep.Interval)
	sw.Start(ctx)

	// Initialize handlers
	h := handlers.New(touristService, officerRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("visatrack"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	idempotency := mw.IdempotencyMiddleware(mw.NewRedisIdempotencyStore(redisClient))

	r.Route("/", func(r chi.Router) {
		// Officer auth
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.With(h.RequireJWT("officer")).Get("/auth/me", h.Me)

		// Tourist records
		r.Route("/tourists", func(r chi.Router) {
			r.Use(h.RequireJWT("officer"))
			r.With(idempotency).Post("/", h.CreateTourist)
			r.Get("/", h.ListTourists)
			r.Get("/{id}", h.GetTourist)
			r.Post("/{id}/reminder", h.SendReminder)
			r.Post("/{id}/exit", h.RecordExit)
			r.Post("/{id}/renewal", h.RecordRenewal)
		})

		// Dashboard
		r.With(h.RequireJWT("officer")).Get("/dashboard/stats", h.DashboardStats)

		// Admin
		r.With(h.RequireJWT("admin")).Post("/admin/sweep", h.TriggerSweep)
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("Shutting down visatrack service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting visatrack service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
			cfg.Email.SMTPUseTLS,
		)
	}
}
