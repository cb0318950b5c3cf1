package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/sketchroom/backend/internal/v1/clock"
	"github.com/sketchroom/backend/internal/v1/config"
	"github.com/sketchroom/backend/internal/v1/health"
	"github.com/sketchroom/backend/internal/v1/logging"
	"github.com/sketchroom/backend/internal/v1/middleware"
	"github.com/sketchroom/backend/internal/v1/session"
	"github.com/sketchroom/backend/internal/v1/tracing"
	"github.com/sketchroom/backend/internal/v1/words"
)

const serviceName = "sketchroom-backend"

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	envPath := ""
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			envPath = path
			break
		}
	}

	// Validate environment variables before starting the server.
	// The structured logger is not up yet, so bootstrap failures go to slog.
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.Development(), cfg.LogLevel); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx := context.Background()
	if envPath != "" {
		logging.Info(ctx, "loaded environment file", zap.String("path", envPath))
	} else {
		logging.Info(ctx, "no .env file found, relying on environment variables")
	}
	if cfg.Development() {
		logging.Warn(ctx, "running in development mode")
	}

	// --- Tracing (optional) ---
	// Spans only flow when a collector address is configured.
	var tp *sdktrace.TracerProvider
	if cfg.OtelCollectorAddr != "" {
		tp, err = tracing.InitTracer(ctx, serviceName, cfg.OtelCollectorAddr)
		if err != nil {
			logging.Warn(ctx, "tracing disabled, collector unreachable",
				zap.String("addr", cfg.OtelCollectorAddr), zap.Error(err))
			tp = nil
		} else {
			logging.Info(ctx, "tracing initialized", zap.String("addr", cfg.OtelCollectorAddr))
		}
	}

	// --- Word Bank ---
	var bank *words.Bank
	if cfg.WordBankPath != "" {
		bank, err = words.LoadFile(cfg.WordBankPath)
	} else {
		bank, err = words.Default()
	}
	if err != nil {
		logging.Fatal(ctx, "failed to load word bank", zap.Error(err))
	}
	logging.Info(ctx, "word bank loaded",
		zap.Int("words", bank.Len()),
		zap.Strings("categories", bank.Categories()))

	// --- Hub ---
	hub := session.NewHub(bank, clock.Real(), clock.NewTimeSeededRand(), cfg.AllowedOrigin)

	// --- Set up Server ---
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Error handling
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Error(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
		})
	}))
	router.Use(middleware.CorrelationID())
	if tp != nil {
		router.Use(otelgin.Middleware(serviceName))
	}

	// Cors
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.AllowedOrigin}
	router.Use(cors.New(corsCfg))

	// Routing
	router.GET("/ws", hub.ServeWs)

	api := router.Group("/api")
	{
		api.GET("/rooms", hub.HandleListRooms)
		api.GET("/rooms/:roomId", hub.HandleGetRoom)
		api.GET("/rooms/:roomId/exists", hub.HandleRoomExists)
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(
		health.Check{Name: "word_bank", Probe: func(ctx context.Context) error {
			if bank.Len() == 0 {
				return errors.New("word bank is empty")
			}
			return nil
		}},
		health.Check{Name: "hub", Probe: func(ctx context.Context) error {
			if !hub.Ready() {
				return errors.New("hub is shutting down")
			}
			return nil
		}},
	)
	router.GET("/health", healthHandler.Liveness)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Start the server.
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		logging.Info(ctx, "server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "failed to run server", zap.Error(err))
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	// The context gives in-flight requests and rooms 30 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close all active rooms and WebSocket connections gracefully
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "error during hub shutdown", zap.Error(err))
	}

	// Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server forced to shutdown", zap.Error(err))
	}

	// Flush any buffered spans
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logging.Error(shutdownCtx, "error during tracer shutdown", zap.Error(err))
		}
	}

	logging.Info(ctx, "server exiting")
}
