// Lab Accession Backend
//
// Hosts the new-accession workflow for the lab dashboard: operators build a
// draft of samples and slides, and the server creates them on the lab API,
// followed by one batch. Progress is published through Supabase Realtime.
//
// @title           Lab Accession Backend API
// @version         1.0.0
// @BasePath        /api/v1
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/config"
	"lab-accession-backend/internal/database"
	"lab-accession-backend/internal/handlers"
	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/logger"
	"lab-accession-backend/internal/middleware"
	"lab-accession-backend/internal/retry"
	"lab-accession-backend/internal/services"
	"lab-accession-backend/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		logrus.Fatalf("Invalid server configuration: %v", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.Environment); err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := services.Options{
		API: labapi.NewClient(cfg.LabAPIBaseURL, cfg.LabAPIToken, cfg.LabAPITimeout,
			labapi.WithRateLimit(cfg.LabAPIRateLimit, cfg.LabAPIRateBurst)),
		Metrics: accession.NewMetrics(prometheus.DefaultRegisterer),
		SamplePolicy: retry.Policy{
			MaxAttempts:  cfg.SampleMaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			Multiplier:   cfg.RetryBackoffMultiplier,
		},
		BatchPolicy: retry.Policy{
			MaxAttempts:  cfg.BatchMaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			Multiplier:   cfg.RetryBackoffMultiplier,
		},
		SessionTTL:           cfg.WorkflowTTL,
		ForwardOperatorToken: cfg.LabAPIToken == "",
	}

	// Supabase realtime and manifest archive are optional
	if cfg.SupabaseEnabled() {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			logrus.Fatalf("Failed to initialize Supabase client: %v", err)
		}
		opts.Publisher = supabase.NewRealtimeClient(supabaseClient.Supabase)
		opts.Archive = supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	} else {
		logrus.Warn("SUPABASE_URL not set, realtime events and manifest archive are disabled")
	}

	// Submission history needs a direct PostgreSQL connection
	var pinger handlers.Pinger
	if cfg.DatabaseURL == "" {
		logrus.Warn("DATABASE_URL not set, submission history is disabled")
	} else {
		dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Warn("Failed to initialize database client, submission history is disabled")
		} else {
			defer dbClient.Close()
			runMigrations(cfg.DatabaseURL)
			opts.Store = dbClient
			pinger = dbClient
		}
	}

	service := services.NewAccessionService(opts)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TracingIngress())
	router.Use(middleware.RequestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(router,
		handlers.NewHandlers(service, handlers.NewHealthHandler(cfg.Environment, pinger, service)),
		middleware.AuthMiddleware(cfg))

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"lab_api":     cfg.LabAPIBaseURL,
		"environment": cfg.Environment,
	}).Info("Server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown")
	}
	// Pending history writes and realtime events are drained before exit.
	if err := service.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Accession service shutdown")
	}
}

const shutdownTimeout = 15 * time.Second

func runMigrations(dbURL string) {
	migrator, err := database.NewMigrator(dbURL)
	if err != nil {
		logrus.WithError(err).Warn("Failed to initialize migrator")
		return
	}
	defer migrator.Close()

	if err := migrator.Run(); err != nil {
		logrus.WithError(err).Warn("Migration failed")
		return
	}
	logrus.Info("Migrations completed successfully")
}
