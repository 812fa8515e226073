package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/orpheus-audio/narration-worker/internal/api"
	"github.com/orpheus-audio/narration-worker/internal/audio"
	"github.com/orpheus-audio/narration-worker/internal/config"
	"github.com/orpheus-audio/narration-worker/internal/notify"
	"github.com/orpheus-audio/narration-worker/internal/retry"
	"github.com/orpheus-audio/narration-worker/internal/status"
	"github.com/orpheus-audio/narration-worker/internal/storage"
	"github.com/orpheus-audio/narration-worker/internal/tts"
	"github.com/orpheus-audio/narration-worker/internal/worker"
	"github.com/orpheus-audio/narration-worker/shared/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	configPath := flag.String("config", os.Getenv("WORKER_SERVICE_CONFIG_PATH"), "Path to optional YAML config file")
	workers := flag.Int("workers", 0, "Number of concurrent workers (overrides MAX_WORKERS)")
	apiURL := flag.String("api-url", "", "Job API base URL (overrides API_BASE_URL)")
	ttsURL := flag.String("tts-url", "", "TTS server URL (overrides TTS_SERVER_URL)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if *workers > 0 {
		cfg.Worker.MaxWorkers = *workers
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *ttsURL != "" {
		cfg.TTS.ServerURL = *ttsURL
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting narration worker service",
		slog.Int("workers", cfg.Worker.MaxWorkers),
		slog.String("api_url", cfg.API.BaseURL),
		slog.String("tts_url", cfg.TTS.ServerURL),
		slog.String("s3_bucket", cfg.Storage.Bucket),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One HTTP connection pool shared by every worker
	httpClient := &http.Client{Timeout: cfg.Worker.Timeout()}

	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, httpClient, appLogger.Logger)

	ttsClient := tts.NewClient(cfg.TTS.ServerURL, cfg.TTS.Speed, cfg.TTS.Timeout(), httpClient, appLogger.Logger)

	processor, err := audio.NewProcessor(cfg.Worker.OutputDir, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audio processor: %w", err)
	}

	uploader, err := storage.NewUploader(ctx, storage.Config{
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize uploader: %w", err)
	}

	notifier := notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL, httpClient, appLogger.Logger)

	manager := worker.NewManager(worker.ManagerConfig{
		Workers: cfg.Worker.MaxWorkers,
		RetryPolicy: retry.Policy{
			Attempts: cfg.Worker.RetryAttempts,
			Delay:    cfg.Worker.RetryDelay(),
		},
		JobTimeout:   cfg.Worker.Timeout(),
		PollInterval: cfg.Worker.PollInterval(),
	}, worker.Deps{
		API:      apiClient,
		Synth:    ttsClient,
		Voices:   tts.NewVoicePicker(cfg.TTS.UseRandomVoice),
		Audio:    processor,
		Uploader: uploader,
		Notifier: notifier,
	}, appLogger.Logger)

	manager.Start(ctx)

	var statusServer *status.Server
	if cfg.Status.Addr != "" {
		statusServer = status.NewServer(cfg.Status.Addr, manager, appLogger.Logger)
		statusServer.Start()
	}

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	// Drain: workers finish their current narration within the timeout
	manager.Stop()

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Status endpoint shutdown failed",
				slog.String("error", err.Error()),
			)
		}
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}
