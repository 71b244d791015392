package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velichkin/newsgrab/app/api"
	"github.com/velichkin/newsgrab/app/cfg"
	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/pipeline"
	"github.com/velichkin/newsgrab/app/scrape"
	"github.com/velichkin/newsgrab/app/sources"
	"github.com/velichkin/newsgrab/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appConfig == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Newsgrab server", "version", appConfig.Version)

	// Database connection
	db, err := database.NewConnection(
		appConfig.DBHost, appConfig.DBPort, appConfig.DBUser,
		appConfig.DBPassword, appConfig.DBName)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	// Load source rules
	registry := sources.NewRegistry(appConfig.SourcesDir)
	if err := registry.Run(); err != nil {
		log.Fatal("Failed to load source rules:", err)
	}
	slog.Info("Source rules loaded", "count", registry.Count())

	// Initialize repositories and register sources
	sourceRepo := database.NewSourceRepository(db)
	storyRepo := database.NewStoryRepository(db)

	registeredCount := 0
	for _, source := range registry.List() {
		if err := sourceRepo.UpsertSource(source.Name, source.Homepage, source.Settings.Enabled); err != nil {
			slog.Warn("Failed to register source", "source", source.Name, "error", err)
			continue
		}
		registeredCount++
	}
	slog.Info("Sources registered", "registered", registeredCount, "total", registry.Count())

	// Initialize pipeline components
	httpClient := &http.Client{}
	fetcher := scrape.NewFetcher(httpClient, appConfig.UserAgent)
	extractor := scrape.NewExtractor()
	normalizer := scrape.NewNormalizer()
	fullTextExtractor := scrape.NewFullTextExtractor()

	runner := pipeline.NewRunner(fetcher, extractor, normalizer, sourceRepo, storyRepo)
	orchestrator := pipeline.NewOrchestrator(registry, sourceRepo, runner,
		appConfig.WorkerCount, time.Duration(appConfig.MinScrapeInterval)*time.Second)

	// Initialize and start background scheduler
	scheduler := tasks.NewScheduler(registry, orchestrator, storyRepo, httpClient, fullTextExtractor)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP server
	handler := api.NewHandler(registry, sourceRepo, storyRepo, orchestrator)
	server := api.NewServer(handler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	// Graceful shutdown
	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
