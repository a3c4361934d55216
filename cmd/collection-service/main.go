package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paperloop/paperloop-backend/internal/collection/consumers"
	"github.com/paperloop/paperloop-backend/internal/collection/events"
	"github.com/paperloop/paperloop-backend/internal/collection/handler"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"github.com/paperloop/paperloop-backend/pkg/auth"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/httputil"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/messaging"
	"golang.org/x/sync/errgroup"
)

const serviceName = "collection-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Str("storage", cfg.Storage.Driver).Msg("starting Collection Service")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("collection service stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage
	store, err := repository.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	opts := []service.Option{
		service.WithDirectory(store.Directory),
		service.WithScoring(service.ScoringFromConfig(cfg.Scoring)),
		service.WithLogger(log.WithComponent("session-service")),
	}

	// RabbitMQ is optional; without it events are dropped and the
	// directory is only filled by whatever already sits in storage
	var (
		rmq          *messaging.RabbitMQ
		userConsumer *consumers.UserEventConsumer
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
			return fmt.Errorf("failed to declare dead letter queue: %w", err)
		}

		publisher, err := events.NewCollectionEventPublisher(rmq, log)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		opts = append(opts, service.WithPublisher(publisher))

		userConsumer, err = consumers.NewUserEventConsumer(rmq, store.Directory, log)
		if err != nil {
			return fmt.Errorf("failed to create user event consumer: %w", err)
		}
	}

	sessionService := service.NewSessionService(store.Sessions, opts...)
	sessionHandler := handler.NewSessionHandler(sessionService, log)
	tokens := auth.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no authentication)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":  "healthy",
			"service": serviceName,
			"storage": store.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	// API routes (authentication required)
	r.Route("/api/v1/collection", func(r chi.Router) {
		r.Use(httputil.Authenticate(tokens, log))
		r.Mount("/sessions", sessionHandler.Routes())
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	if userConsumer != nil {
		if err := userConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start user event consumer: %w", err)
		}
	}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
