package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/client"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/events"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/handler"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/repository"
	"github.com/thiagoraheem/locador-inventory-sub001/internal/counting/service"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/auth"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/config"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/database"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/httputil"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/logger"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("counting-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("counting-service", cfg.Server.Environment)
	log.Info().Msg("starting Counting Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewCountingEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// ERP collaborator: stock snapshots, asset registry, stock commit
	erp := client.NewERPClient(cfg.Collaborators.ERPBaseURL, cfg.Collaborators.Timeout, log)

	// Initialize store
	store := repository.NewStore(db)

	// Initialize service
	countingService := service.NewService(store, store.Items, store.Serials, erp, erp, erp, publisher, log)

	// Initialize handlers
	inventoryHandler := handler.NewInventoryHandler(countingService, log)
	countHandler := handler.NewCountHandler(countingService, log)
	serialHandler := handler.NewSerialHandler(countingService, log)
	reportHandler := handler.NewReportHandler(countingService, log)

	// Token verification for counter identities issued by the auth collaborator
	authManager := auth.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)

	// CORS - the counting UI and the handheld web client run on separate origins
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			// Allow localhost variations (development)
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			// Allow *.locador.com.br for production
			if len(origin) > 15 && origin[len(origin)-15:] == ".locador.com.br" {
				return true
			}
			return false
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httputil.Authenticator(authManager))
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "counting-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/counting", func(r chi.Router) {
		// Campaign lifecycle
		r.Route("/inventories", func(r chi.Router) {
			r.Get("/", inventoryHandler.List)
			r.Post("/", inventoryHandler.Create)
			r.Get("/{id}", inventoryHandler.Get)
			r.Post("/{id}/open", inventoryHandler.Open)
			r.Post("/{id}/stages/open", inventoryHandler.OpenStage)
			r.Post("/{id}/stages/close", inventoryHandler.CloseStage)
			r.Post("/{id}/close", inventoryHandler.Close)
			r.Post("/{id}/cancel", inventoryHandler.Cancel)
			r.Post("/{id}/migrate", inventoryHandler.Migrate)

			// Items and blind counts
			r.Get("/{id}/items", countHandler.ListItems)
			r.Get("/{id}/progress", countHandler.Progress)

			// Serial readings
			r.Post("/{id}/serial-readings", serialHandler.RegisterReading)
			r.With(httputil.RequireElevated).Get("/{id}/serials", serialHandler.ListSerials)

			// Reports
			r.Get("/{id}/reports/validation", reportHandler.Validation)
			r.With(httputil.RequireElevated).Get("/{id}/reports/reconciliation", reportHandler.Reconciliation)
		})

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Get("/", countHandler.GetItem)
			r.Post("/counts", countHandler.RecordCount)
			r.With(httputil.RequireElevated).Post("/corrections", countHandler.CorrectCount)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
