package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/rev-voice/adapters/llm"
	"github.com/satriahrh/rev-voice/adapters/storage"
	"github.com/satriahrh/rev-voice/internal/api"
	"github.com/satriahrh/rev-voice/internal/config"
	"github.com/satriahrh/rev-voice/internal/housekeeping"
	"github.com/satriahrh/rev-voice/internal/websocket"
	"github.com/satriahrh/rev-voice/usecase"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		zap.NewExample().Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize logger
	logger, _ := zap.NewProduction()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; every request will fail until it is configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	responder, err := llm.NewGeminiResponder(ctx, cfg.Gemini, cfg.Persona, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini", zap.Error(err))
	}
	uploads, err := storage.NewDiskUploadStore(cfg.Uploads.Dir, cfg.Uploads.Retain, logger)
	if err != nil {
		logger.Fatal("Failed to initialize upload store", zap.Error(err))
	}

	// Initialize usecase services
	relay := usecase.NewRelayService(responder, uploads, cfg.Uploads.Retain, logger)
	hub := websocket.NewHub(relay, logger)
	sweeper := housekeeping.NewUploadSweeper(uploads, cfg.Uploads.SweepInterval, cfg.Uploads.MaxAge, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID),
				zap.Error(v.Error))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(strconv.FormatInt(cfg.Uploads.MaxBytes, 10) + "B"))

	api.InitRoutes(e, hub, relay, cfg.PublicDir, logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		hub.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		sweeper.Start()
		<-groupCtx.Done()
		sweeper.Stop()
		return nil
	})

	group.Go(func() error {
		logger.Info("Relay server started", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}
