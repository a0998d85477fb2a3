package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"

	"admission-relay/internal/clock"
	"admission-relay/internal/config"
	"admission-relay/internal/handler"
	"admission-relay/internal/middleware"
	"admission-relay/internal/repository"
	"admission-relay/internal/router"
	"admission-relay/internal/service"
	"admission-relay/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	var envFile string
	var pairOnly bool

	flagSet := pflag.NewFlagSet("admission-relay", pflag.ExitOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "environment file to load before reading configuration")
	flagSet.BoolVar(&pairOnly, "pair-only", false, "pair the WhatsApp notifier device and exit")
	flagSet.Parse(os.Args[1:])

	// Create .env from .env.example if not exists
	if envFile == ".env" {
		if err := ensureEnvFile(); err != nil {
			log.Printf("Warning: Failed to create .env file: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger := logger.New(cfg.Server.LogLevel)
	appLogger.Info("Starting admission relay service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	if pairOnly {
		if err := pairNotifier(ctx, cfg, appLogger); err != nil {
			log.Fatalf("Pairing failed: %v", err)
		}
		return
	}

	// Initialize relay service
	relayService := service.NewRelayService(&cfg.Relay, clk, appLogger)

	// Initialize delivery log
	var deliveryRepo *repository.DeliveryRepository
	var counter handler.OutcomeCounter
	if cfg.DeliveryLog.DBPath != "" {
		deliveryRepo, err = repository.NewDeliveryRepository(cfg.DeliveryLog.DBPath, cfg.DeliveryLog.TTL, clk)
		if err != nil {
			appLogger.Error("Failed to open delivery log", "error", err)
			log.Fatalf("Failed to open delivery log: %v", err)
		}
		defer deliveryRepo.Close()

		relayService.SetDeliveryRecorder(deliveryRepo)
		counter = deliveryRepo
		go service.RunCleanup(ctx, deliveryRepo, clk, cleanupInterval, appLogger)

		appLogger.Info("Delivery log enabled", "path", cfg.DeliveryLog.DBPath, "ttl", cfg.DeliveryLog.TTL.String())
	}

	// Initialize WhatsApp notifier
	var notifierStatus handler.StatusReporter
	if cfg.Notify.Enabled {
		notifier, err := service.NewWhatsAppNotifier(ctx, &cfg.Notify, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize WhatsApp notifier", "error", err)
			log.Fatalf("Failed to initialize WhatsApp notifier: %v", err)
		}

		if err := notifier.Connect(ctx); err != nil {
			appLogger.Error("Failed to connect to WhatsApp", "error", err)
			log.Fatalf("Failed to connect to WhatsApp: %v\nRun with --pair-only to scan the QR code first", err)
		}
		defer notifier.Disconnect()

		relayService.SetNotifier(notifier)
		notifierStatus = notifier
	}

	// Initialize handlers
	handlers := router.Handlers{
		Admission: handler.NewAdmissionHandler(relayService, appLogger),
		Health:    handler.NewHealthHandler(notifierStatus, counter, cfg, clk, appLogger),
	}
	if deliveryRepo != nil {
		handlers.Deliveries = handler.NewDeliveriesHandler(deliveryRepo, appLogger)
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Security.APIKey, appLogger)
	if deliveryRepo != nil && !authMiddleware.Enabled() {
		appLogger.Warn("API_KEY is not set, /api/v1/deliveries is not served")
	}

	// Create HTTP server
	addr := cfg.Address()
	server := &http.Server{
		Addr:         addr,
		Handler:      router.New(handlers, authMiddleware, appLogger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.Relay.Timeout),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("HTTP server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server error", "error", err)
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	appLogger.Info("Admission relay service started successfully",
		"address", addr,
		"default_destination", cfg.Relay.DefaultWebhookURL != "",
		"notifier_enabled", cfg.Notify.Enabled,
	)

	// Wait for interrupt signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		return
	}

	appLogger.Info("Server stopped gracefully")
}

// pairNotifier links the WhatsApp device used for staff notifications
func pairNotifier(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) error {
	if cfg.Notify.Recipient == "" {
		return fmt.Errorf("NOTIFY_WHATSAPP_TO is required for pairing")
	}

	notifier, err := service.NewWhatsAppNotifier(ctx, &cfg.Notify, appLogger)
	if err != nil {
		return err
	}
	defer notifier.Disconnect()

	if err := notifier.Connect(ctx); err != nil {
		return err
	}

	appLogger.Info("WhatsApp notifier paired", "status", notifier.ConnectionStatus())
	return nil
}

// writeTimeout keeps the server from cutting off a response while the
// relay is still waiting on the destination
func writeTimeout(relayTimeout time.Duration) time.Duration {
	if relayTimeout <= 0 {
		return 0
	}
	return relayTimeout + 15*time.Second
}

// ensureEnvFile creates .env from .env.example if .env doesn't exist
func ensureEnvFile() error {
	// Check if .env already exists
	if _, err := os.Stat(".env"); err == nil {
		return nil
	}

	// Nothing to copy from
	if _, err := os.Stat(".env.example"); os.IsNotExist(err) {
		return nil
	}

	source, err := os.Open(".env.example")
	if err != nil {
		return fmt.Errorf("failed to open .env.example: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(".env")
	if err != nil {
		return fmt.Errorf("failed to create .env: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("failed to copy .env.example to .env: %w", err)
	}

	log.Println("Created .env file from .env.example")
	return nil
}
