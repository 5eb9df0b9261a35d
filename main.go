package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-box/backend/internal/models"
	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/di"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/observability"
	"recipe-box/backend/pkg/router"
	"recipe-box/backend/pkg/secrets"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	appLogger := logger.New(logConfig)
	logger.SetGlobal(appLogger)

	if err := secrets.Init(appLogger); err != nil {
		appLogger.Warn("Secrets manager unavailable, using environment variables", "error", err.Error())
	}

	ctx := context.Background()
	jwtSecret := secrets.GetSecretWithDefault(ctx, "jwt_secret", cfg.JWT.Secret)
	if jwtSecret == "" {
		appLogger.Error("JWT secret is not configured")
		os.Exit(1)
	}

	db, err := config.NewDB()
	if err != nil {
		appLogger.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Recipe{},
		&models.ShoppingList{},
	); err != nil {
		appLogger.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	shutdownTracing := observability.SetupTracing("recipe-box-backend")
	defer shutdownTracing()

	metricsAddr := os.Getenv("METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	observability.SetupPrometheusMetrics(metricsAddr)

	containerConfig := di.DefaultConfig()
	containerConfig.LoggerConfig = logConfig
	containerConfig.JWTSecret = jwtSecret
	containerConfig.JWTIssuer = cfg.JWT.Issuer
	containerConfig.JWTExpiry = cfg.JWT.Expiry

	container, err := di.New(db, containerConfig)
	if err != nil {
		appLogger.Error("Failed to build container", "error", err.Error())
		os.Exit(1)
	}

	container.Health.Start()

	r := router.New(container)
	r.SetupRoutes()

	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		appLogger.Info("Server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Forced shutdown", "error", err.Error())
	}

	appLogger.Info("Server stopped")
}
