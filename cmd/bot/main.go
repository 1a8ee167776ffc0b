package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"tweetwatch/internal/alerts"
	"tweetwatch/internal/config"
	"tweetwatch/internal/discord"
	"tweetwatch/internal/journal"
	"tweetwatch/internal/monitoring"
	"tweetwatch/internal/scheduler"
	"tweetwatch/internal/state"
	"tweetwatch/internal/storage"
	"tweetwatch/internal/twitter"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Tweetwatch Bot")

	// Initialize state storage backend
	backend, err := newStorageBackend(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	// Load persisted guild state; missing or corrupt state starts empty
	store := state.NewStore(backend)
	store.Load()

	// Optional delivery journal
	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			logrus.Fatalf("Failed to open delivery journal: %v", err)
		}
		defer jrnl.Close()
	}

	// X client; one shared credential for the whole deployment. Env
	// credentials let a restart re-login without waiting for /config-account.
	social := twitter.NewClient(cfg.TwitterAPIBaseURL)
	if cfg.TwitterUsername != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := social.Login(ctx, cfg.TwitterUsername, cfg.TwitterPassword); err != nil {
			logrus.Errorf("Initial X login failed, waiting for /config-account: %v", err)
		}
		cancel()
	}

	// Discord session
	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		logrus.Fatalf("Failed to create Discord session: %v", err)
	}
	if err := session.Open(); err != nil {
		logrus.Fatalf("Failed to connect to Discord: %v", err)
	}
	defer session.Close()
	logrus.Infof("Connected to Discord as %s", session.BotUser())

	// Sweep engine
	mailer := alerts.NewMailer(cfg)
	sweeper := monitoring.NewService(cfg, store, social, session, jrnl, mailer)

	// Scheduler; cadence is the minimum of all per-guild intervals
	sweepCtx, cancelSweeps := context.WithCancel(context.Background())
	defer cancelSweeps()
	schedulerService := scheduler.NewService(store.MinInterval(), func() {
		if err := sweeper.RunSweep(sweepCtx); err != nil {
			logrus.Errorf("Sweep failed: %v", err)
		}
	})

	// Slash commands
	commands := discord.NewCommands(store, social, schedulerService)
	if err := commands.Register(session); err != nil {
		logrus.Fatalf("Failed to register commands: %v", err)
	}

	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	// Set up HTTP server for health checks and operations
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(sweeper)).Methods("GET")

	// Manual trigger endpoint (for testing)
	router.HandleFunc("/trigger", triggerHandler(sweepCtx, sweeper)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	// Stop the scheduler first; this waits for an in-flight sweep so no
	// delivery is cut off between the send and its watermark commit.
	cancelSweeps()
	schedulerService.Stop()

	if err := store.Save(); err != nil {
		logrus.Errorf("Final state save failed: %v", err)
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newStorageBackend(cfg *config.Config) (storage.StorageInterface, error) {
	switch cfg.StorageBackend {
	case "azure":
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	default:
		return storage.NewFileStorage(cfg.StateDir)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(sweeper *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := sweeper.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func triggerHandler(ctx context.Context, sweeper *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := sweeper.RunSweep(ctx); err != nil {
				logrus.Errorf("Manual sweep trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Sweep triggered successfully"}`))
	}
}
