// Package main provides the entry point for the commentscope server: the
// HTTP API plus the Temporal worker executing crawl workflows.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/commentscope/commentscope/internal/api"
	"github.com/commentscope/commentscope/internal/corpus"
	"github.com/commentscope/commentscope/internal/crawler"
	"github.com/commentscope/commentscope/internal/crawler/instagram"
	"github.com/commentscope/commentscope/internal/crawler/youtube"
	"github.com/commentscope/commentscope/internal/temporal/activities"
	"github.com/commentscope/commentscope/internal/temporal/workflows"
	"github.com/commentscope/commentscope/pkg/config"
	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/normalize"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	service, err := buildService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build crawler service")
	}
	activities.SetGlobalService(service)

	preparedPath := ""
	if cfg.Corpus.PreparedFile != "" {
		preparedPath = filepath.Join(cfg.Corpus.OutputDir, cfg.Corpus.PreparedFile)
	}
	var archive *corpus.Archive
	if cfg.Corpus.ArchiveRepo != "" {
		archive, err = corpus.OpenArchive(cfg.Corpus.ArchiveRepo)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open corpus archive")
		}
	}
	activities.SetGlobalCorpus(normalize.NewPipeline(), preparedPath, archive)

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Temporal client")
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 4,
	})
	w.RegisterWorkflow(workflows.CrawlWorkflow)
	w.RegisterActivity(activities.CrawlActivity)
	w.RegisterActivity(activities.PrepareCorpusActivity)
	w.RegisterActivity(activities.ArchiveCorpusActivity)

	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Fatal().Err(err).Msg("Worker stopped")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName: "commentscope API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	h := api.NewHandlers(temporalClient, cfg.Temporal.TaskQueue)
	setupRoutes(app, h)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", cfg.Server.Addr()).Msg("Starting commentscope server")
	if err := app.Listen(cfg.Server.Addr()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// buildService assembles the platform clients available under the current
// configuration. A platform without credentials is skipped, not fatal, so
// one service can run with either source alone.
func buildService(cfg *config.Config) (*crawler.Service, error) {
	var clients []crawler.Client

	if cfg.YouTube.APIKey != "" {
		yt, err := youtube.NewClient(&youtube.Config{
			APIKey:          cfg.YouTube.APIKey,
			BaseURL:         cfg.YouTube.BaseURL,
			RequestTimeout:  cfg.Crawl.RequestTimeout.Std(),
			RetryAttempts:   cfg.Crawl.RetryAttempts,
			RetryDelay:      cfg.Crawl.RetryDelay.Std(),
			MaxVideoWorkers: cfg.Crawl.MaxVideoWorkers,
		})
		if err != nil {
			return nil, err
		}
		clients = append(clients, yt)
	} else {
		log.Warn().Msg("YouTube API key not set, youtube crawls unavailable")
	}

	if cfg.Instagram.Username != "" && cfg.Instagram.Password != "" {
		rules, err := crawler.NewRuleSet(cfg.Crawl.ExclusionPatterns)
		if err != nil {
			return nil, err
		}
		ig, err := instagram.NewClient(&instagram.Config{
			Username:        cfg.Instagram.Username,
			Password:        cfg.Instagram.Password,
			BaseURL:         cfg.Instagram.BaseURL,
			RequestTimeout:  cfg.Crawl.RequestTimeout.Std(),
			PolitenessDelay: cfg.Crawl.PolitenessDelay.Std(),
			MaxExpandSteps:  50,
		}, rules, nil)
		if err != nil {
			return nil, err
		}
		clients = append(clients, ig)
	} else {
		log.Warn().Msg("Instagram credentials not set, instagram crawls unavailable")
	}

	return crawler.NewService(crawler.ServiceConfig{
		SimilarityThreshold: cfg.Crawl.SimilarityThreshold,
		ExclusionPatterns:   cfg.Crawl.ExclusionPatterns,
		OutputDir:           cfg.Corpus.OutputDir,
		PrimaryFile:         cfg.Corpus.PrimaryFile,
		NearDuplicateFile:   cfg.Corpus.NearDuplicateFile,
	}, clients, corpus.WriteRecords)
}

// setupRoutes configures all API routes
func setupRoutes(app *fiber.App, h *api.Handlers) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")
	v1.Post("/crawl", h.StartCrawl)
	v1.Get("/workflows/:id", h.GetWorkflowStatus)
}
