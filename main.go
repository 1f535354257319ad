package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cdp-analytics/app"
	"cdp-analytics/config"
	"cdp-analytics/models"
	"cdp-analytics/routes"
	"cdp-analytics/services"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.JWT.Secret == "" {
		if cfg.Server.Mode == gin.ReleaseMode {
			logger.Fatal("JWT_SECRET is required in release mode")
		}
		// tokens will not survive a restart
		cfg.JWT.Secret = utils.GenerateJWTSecret()
		logger.Warn("JWT_SECRET not set, using an ephemeral secret")
	}
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()

	db, err := config.ConnectDB(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer config.CloseDB(db)
	logger.Info("Database connected")

	if err := models.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	a, err := app.Build(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("Failed to build services", zap.Error(err))
	}
	defer a.Close()

	var scheduler *services.Scheduler
	if cfg.ETL.Schedule != "" {
		scheduler, err = services.NewScheduler(cfg.ETL.Schedule, a.Transform, logger)
		if err != nil {
			logger.Fatal("Failed to create scheduler", zap.Error(err))
		}
		scheduler.Start()
		logger.Info("ETL scheduler started",
			zap.String("schedule", cfg.ETL.Schedule),
			zap.Time("next_run", scheduler.NextRun()))
	}

	r := routes.SetupRouter(cfg, logger, a.Handlers())
	printRoutes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("Scheduled run still in progress at shutdown")
		}
	}

	logger.Info("Server exited")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
