// Package activities implements the crawl workflow's activities over the
// crawler service and the corpus packages.
package activities

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/commentscope/commentscope/internal/corpus"
	"github.com/commentscope/commentscope/internal/crawler"
	"github.com/commentscope/commentscope/internal/temporal/workflows"
	"github.com/commentscope/commentscope/pkg/normalize"
)

// Global instances - should be injected via dependency injection in
// production; set once from the worker entry point.
var (
	globalService      *crawler.Service
	globalPipeline     *normalize.Pipeline
	globalArchive      *corpus.Archive
	globalPreparedPath string
)

// SetGlobalService wires the crawler service used by CrawlActivity.
func SetGlobalService(service *crawler.Service) {
	globalService = service
}

// SetGlobalCorpus wires the normalization pipeline, the prepared-file path
// and the (optional, may be nil) archive.
func SetGlobalCorpus(pipeline *normalize.Pipeline, preparedPath string, archive *corpus.Archive) {
	globalPipeline = pipeline
	globalPreparedPath = preparedPath
	globalArchive = archive
}

// CrawlActivity runs one crawl and writes the raw corpus files. Failures
// that retrying cannot fix come back as non-retryable application errors.
func CrawlActivity(ctx context.Context, input workflows.CrawlInput) (*crawler.Summary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Crawling", "platform", input.Platform, "account", input.Account)

	if globalService == nil {
		return nil, fmt.Errorf("crawler service not initialized")
	}

	summary, err := globalService.Run(ctx, crawler.Request{
		Account:   input.Account,
		Platform:  input.Platform,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	})
	switch {
	case errors.Is(err, crawler.ErrAccountNotFound):
		return nil, temporal.NewNonRetryableApplicationError(
			err.Error(), workflows.AccountNotFoundErrorType, err)
	case errors.Is(err, crawler.ErrQuotaExceeded):
		// Partial output was already written; retrying would only burn
		// more quota.
		return nil, temporal.NewNonRetryableApplicationError(
			err.Error(), workflows.QuotaExceededErrorType, err)
	case err != nil:
		return nil, err
	}

	logger.Info("Crawl finished",
		"admitted", summary.Admitted,
		"near_duplicates", summary.NearDuplicates,
		"excluded", summary.Excluded,
		"partial", summary.Partial)
	return summary, nil
}

// PrepareCorpusActivity normalizes the raw corpus into the analysis-ready
// file next to it.
func PrepareCorpusActivity(ctx context.Context, input workflows.PrepareInput) (*workflows.PrepareOutput, error) {
	logger := activity.GetLogger(ctx)

	if globalPipeline == nil {
		return nil, fmt.Errorf("normalization pipeline not initialized")
	}
	outPath := globalPreparedPath
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(input.PrimaryPath), "prepared.csv")
	}

	stats, err := corpus.Prepare(globalPipeline, input.PrimaryPath, outPath)
	if err != nil {
		return nil, err
	}

	logger.Info("Corpus prepared", "read", stats.Read, "kept", stats.Kept, "dropped", stats.Dropped)
	return &workflows.PrepareOutput{Path: outPath, Stats: stats}, nil
}

// ArchiveCorpusActivity commits the run's files to the archive repository.
// With archiving disabled it is a no-op returning an empty hash.
func ArchiveCorpusActivity(ctx context.Context, input workflows.ArchiveInput) (string, error) {
	logger := activity.GetLogger(ctx)

	if globalArchive == nil {
		logger.Info("Archiving disabled, skipping", "run_id", input.RunID)
		return "", nil
	}

	commit, err := globalArchive.CommitRun(input.RunID, input.Files...)
	if err != nil {
		return "", fmt.Errorf("failed to archive run %s: %w", input.RunID, err)
	}
	return commit, nil
}
