package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/briefwire/curator/internal/api"
	"github.com/briefwire/curator/internal/cache"
	"github.com/briefwire/curator/internal/classifier"
	"github.com/briefwire/curator/internal/config"
	"github.com/briefwire/curator/internal/logger"
	"github.com/briefwire/curator/internal/middleware"
	"github.com/briefwire/curator/internal/oracle"
	"github.com/briefwire/curator/internal/selection"
	"github.com/briefwire/curator/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one classification + selection pass and exit")
	dryRun := flag.Bool("dry-run", false, "with -once: evaluate the run without persisting anything")
	date := flag.String("date", "", "with -once: issue date (YYYY-MM-DD, default today)")
	flag.Parse()

	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting curator...")

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis client")
		}
	}()

	fileStore, err := store.NewFileStore(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize record store")
	}

	var archiver selection.Archiver
	if a, err := store.NewArchiver(context.Background(), cfg); err != nil {
		log.Error().Err(err).Msg("Issue archive disabled")
	} else if a != nil {
		archiver = a
	}

	oracleClient := oracle.NewGeminiClient(cfg.OracleAPIKey, cfg.OracleModel, oracle.ClientOptions{
		Timeout: cfg.OracleTimeout,
		Retries: cfg.OracleRetries,
	})

	cls := classifier.New(fileStore, oracleClient, redisClient, classifier.Options{
		BatchSize:      cfg.ClassifyBatchSize,
		MaxConcurrency: cfg.MaxConcurrency,
		MarkerTTL:      cfg.MarkerTTL,
	})

	orch := selection.NewOrchestrator(fileStore, oracleClient, oracleClient, redisClient, archiver, selection.Options{
		RunClaimTTL:      cfg.RunClaimTTL,
		SubjectMaxLength: cfg.SubjectMaxLength,
		PersistRetries:   cfg.PersistRetries,
		PersistBackoff:   cfg.PersistBackoff,
	})

	if *once {
		runOnce(cls, orch, *date, *dryRun)
		return
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	handlers := api.NewHandlers(cfg, fileStore, orch, cls)
	api.SetupRoutes(app, handlers, cfg.AdminAPIKey)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// runOnce is the scheduler entry point: classify whatever is fresh, then
// run today's selection, print the report and exit.
func runOnce(cls *classifier.Classifier, orch *selection.Orchestrator, date string, dryRun bool) {
	log := logger.Get()

	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Minute)
	defer cancel()

	if _, err := cls.Run(ctx, time.Now(), false); err != nil {
		log.Error().Err(err).Msg("Classification pass failed, selecting from existing records")
	}

	report, err := orch.Run(ctx, date, dryRun)
	if err != nil {
		log.Fatal().Err(err).Str("date", date).Msg("Selection run failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error().Err(err).Msg("Error printing run report")
	}
}
