// Package main provides a one-shot crawl CLI: collect, prepare, and
// optionally archive a single account's comments without a workflow engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/commentscope/commentscope/internal/corpus"
	"github.com/commentscope/commentscope/internal/crawler"
	"github.com/commentscope/commentscope/internal/crawler/instagram"
	"github.com/commentscope/commentscope/internal/crawler/youtube"
	"github.com/commentscope/commentscope/pkg/config"
	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/normalize"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		platform   = flag.String("platform", "", "platform to crawl (instagram or youtube)")
		account    = flag.String("account", "", "account or channel name")
		startDate  = flag.String("start", "", "window start date (YYYY-MM-DD)")
		endDate    = flag.String("end", "", "window end date (YYYY-MM-DD)")
		timeout    = flag.Duration("timeout", 30*time.Minute, "overall crawl timeout")
		noPrepare  = flag.Bool("no-prepare", false, "skip the normalization pass")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	if *platform == "" || *account == "" || *startDate == "" || *endDate == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, *platform, *account, *startDate, *endDate, *timeout, !*noPrepare); err != nil {
		log.Fatal().Err(err).Msg("Crawl failed")
	}
}

func run(cfg *config.Config, platform, account, startDate, endDate string, timeout time.Duration, prepare bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	service, err := buildService(cfg)
	if err != nil {
		return err
	}

	summary, err := service.Run(ctx, crawler.Request{
		Account:   account,
		Platform:  platform,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil && !errors.Is(err, crawler.ErrQuotaExceeded) {
		return err
	}
	if errors.Is(err, crawler.ErrQuotaExceeded) {
		log.Warn().Msg("API quota exhausted, partial corpus written")
	}

	fmt.Printf("Crawled %s/%s: %d comments, %d near-duplicates, %d excluded in %s\n",
		summary.Platform, summary.Account,
		summary.Admitted, summary.NearDuplicates, summary.Excluded,
		summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("  primary:        %s\n", summary.PrimaryPath)
	fmt.Printf("  near-duplicate: %s\n", summary.NearDuplicatePath)

	files := []string{summary.PrimaryPath, summary.NearDuplicatePath}
	if prepare {
		preparedPath := filepath.Join(cfg.Corpus.OutputDir, cfg.Corpus.PreparedFile)
		stats, err := corpus.Prepare(normalize.NewPipeline(), summary.PrimaryPath, preparedPath)
		if err != nil {
			return err
		}
		fmt.Printf("  prepared:       %s (%d kept, %d dropped)\n", preparedPath, stats.Kept, stats.Dropped)
		files = append(files, preparedPath)
	}

	if cfg.Corpus.ArchiveRepo != "" {
		archive, err := corpus.OpenArchive(cfg.Corpus.ArchiveRepo)
		if err != nil {
			return err
		}
		runID := fmt.Sprintf("crawl-%s", uuid.New().String())
		commit, err := archive.CommitRun(runID, files...)
		if err != nil {
			return err
		}
		fmt.Printf("  archived:       %s (%s)\n", runID, commit[:8])
	}
	return nil
}

// buildService assembles the clients the flags can select.
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
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no platform credentials configured; set YOUTUBE_API_KEY or INSTAGRAM_USERNAME/INSTAGRAM_PASSWORD")
	}

	return crawler.NewService(crawler.ServiceConfig{
		SimilarityThreshold: cfg.Crawl.SimilarityThreshold,
		ExclusionPatterns:   cfg.Crawl.ExclusionPatterns,
		OutputDir:           cfg.Corpus.OutputDir,
		PrimaryFile:         cfg.Corpus.PrimaryFile,
		NearDuplicateFile:   cfg.Corpus.NearDuplicateFile,
	}, clients, corpus.WriteRecords)
}
