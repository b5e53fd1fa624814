package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vardakademi/gdprguard/internal/account"
	"github.com/vardakademi/gdprguard/internal/config"
	"github.com/vardakademi/gdprguard/internal/escalation"
	"github.com/vardakademi/gdprguard/internal/guard"
	"github.com/vardakademi/gdprguard/internal/logger"
	"github.com/vardakademi/gdprguard/internal/server"
	"github.com/vardakademi/gdprguard/internal/session"
	"github.com/vardakademi/gdprguard/internal/websocket"
	"go.uber.org/zap"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("gdprguard %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting gdprguard",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Account store (persisted violation counters and lock state)
	store, err := account.NewStore(&cfg.Database, cfg.Escalation.Threshold, log.WithComponent("account").Logger)
	if err != nil {
		log.Fatal("Failed to create account store", zap.Error(err))
	}
	defer store.Close()

	// Session registry (cross-tab lockout markers and forced logout)
	sessions, err := session.NewRegistry(&cfg.Redis, log.WithComponent("session").Logger)
	if err != nil {
		log.Fatal("Failed to create session registry", zap.Error(err))
	}
	defer sessions.Close()

	// WebSocket hub (violation and lockout notices to the browser)
	hub := websocket.NewHub(log.WithComponent("websocket").Logger)

	// PII guard
	g, err := guard.New(cfg.Guard, log.WithComponent("guard"))
	if err != nil {
		log.Fatal("Failed to create PII guard", zap.Error(err))
	}

	// Escalation tracker (three-strikes policy)
	tracker := escalation.NewTracker(store, sessions, hub, cfg.Escalation, log.WithComponent("escalation"))

	srv := server.New(cfg, log, g, tracker, hub, store, sessions)

	// Log config file changes; detection and escalation settings require a
	// restart to take effect.
	if err := config.Watch(log.WithComponent("config").Logger, func(newCfg *config.Config) {
		log.Info("Configuration file changed, restart to apply",
			zap.Strings("categories", newCfg.Guard.Categories),
			zap.Int("threshold", newCfg.Escalation.Threshold))
	}); err != nil {
		log.Warn("Failed to watch configuration file", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
