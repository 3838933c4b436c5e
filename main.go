package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"followup-tracker/internal/config"
	"followup-tracker/internal/factory"
	"followup-tracker/internal/handler"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/middleware"
	"followup-tracker/internal/router"
	"followup-tracker/internal/service"
	"followup-tracker/internal/sse"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	// Initialize logger
	appLogger := logger.New()
	appLogger.SetLevel(cfg.LogLevel)

	// Initialize repositories for the configured driver
	storage, err := factory.NewStorage(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer storage.Close()
	appLogger.Info("Using", storage.Driver, "storage")

	// Initialize services
	var oauthConfig *oauth2.Config
	if cfg.AuthRequired() {
		oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.BaseURL + "/auth/google/callback",
			Scopes:       handler.GmailScopes,
		}
	}
	authService := service.NewAuthService(storage.Accounts, oauthConfig, appLogger)

	source, err := factory.NewMailboxSource(cfg, authService.AccessToken, appLogger)
	if err != nil {
		log.Fatal("Failed to initialize mailbox source:", err)
	}

	tracker := service.NewTrackerService(storage.Snapshots, source, cfg.Tunables, appLogger)
	if err := tracker.Load(context.Background()); err != nil {
		log.Fatal("Failed to load tracked state:", err)
	}

	// Initialize SSE manager for real-time state updates
	sseManager := sse.NewSSEManager(appLogger)
	tracker.OnChange(sseManager.PublishChange)
	refreshJob := sse.NewRefreshJob(tracker, sseManager, cfg.RefreshInterval, appLogger)

	// Initialize handlers
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestLogger(appLogger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	store := handler.NewSessionStore([]byte(cfg.SessionSecret), cfg.Env == "production")
	trackerHandler := handler.NewTrackerHandler(tracker, store, sseManager, e.Logger)

	var authHandler *handler.AuthHandler
	if cfg.AuthRequired() {
		handler.UseGoogleProvider(cfg, store)
		authHandler = handler.NewAuthHandler(authService, store, e.Logger)
	}

	router.SetupRoutes(e, authHandler, trackerHandler)

	// Start the refresh job in a separate goroutine
	go refreshJob.Start()

	go func() {
		appLogger.Info("Starting server on port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Failed to start server:", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	refreshJob.Stop()
	sseManager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Error("Failed to shut down server:", err)
	}
}
