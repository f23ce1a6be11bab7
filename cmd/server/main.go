// Package main is the entry point for the AI service HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/llm"
	"github.com/tradescribe/ai-service/internal/news"
	"github.com/tradescribe/ai-service/internal/server"
	"github.com/tradescribe/ai-service/internal/service"
	"github.com/tradescribe/ai-service/internal/storage"
)

func main() {
	// run() keeps deferred cleanup working; os.Exit skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development keeps API keys in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AI_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr; not a real problem.
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	calls := storage.NewCallRepository(db)
	newsClient := news.NewClient(cfg.News.BaseURL, cfg.News.APIKey, logger)

	// A recognized provider with a missing key is a deployment mistake and
	// fails startup. An unrecognized provider boots a stub backend instead,
	// so the health endpoint can report the misconfiguration.
	client, err := llm.New(cfg.LLM, newsClient, logger)
	if err != nil {
		return fmt.Errorf("selecting LLM backend: %w", err)
	}

	ai := service.NewAIService(client, calls, logger)
	srv := server.New(cfg, server.Deps{AI: ai, Calls: calls}, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests time to finish; chat replies can be slow.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
