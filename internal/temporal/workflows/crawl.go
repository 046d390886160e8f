// Package workflows defines the crawl orchestration workflow and the
// activity contracts it executes.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/commentscope/commentscope/internal/corpus"
	"github.com/commentscope/commentscope/internal/crawler"
)

// Activity names, referenced by string so workers and tests can register
// their own implementations.
const (
	CrawlActivityName         = "CrawlActivity"
	PrepareCorpusActivityName = "PrepareCorpusActivity"
	ArchiveCorpusActivityName = "ArchiveCorpusActivity"
)

// Error types that make retrying pointless.
const (
	AccountNotFoundErrorType = "AccountNotFoundError"
	QuotaExceededErrorType   = "QuotaExceededError"
)

// CrawlInput identifies one crawl job.
type CrawlInput struct {
	Account   string `json:"account"`
	Platform  string `json:"platform"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// PrepareInput names the written raw corpus to normalize.
type PrepareInput struct {
	PrimaryPath string `json:"primary_path"`
}

// PrepareOutput reports the prepared corpus file and its statistics.
type PrepareOutput struct {
	Path  string              `json:"path"`
	Stats corpus.PrepareStats `json:"stats"`
}

// ArchiveInput names the files of one run to commit to the archive.
type ArchiveInput struct {
	RunID string   `json:"run_id"`
	Files []string `json:"files"`
}

// CrawlResult is the workflow's aggregate outcome.
type CrawlResult struct {
	Summary       crawler.Summary     `json:"summary"`
	PreparedPath  string              `json:"prepared_path"`
	PrepareStats  corpus.PrepareStats `json:"prepare_stats"`
	ArchiveCommit string              `json:"archive_commit,omitempty"`
}

// CrawlWorkflow runs one crawl end to end: collect, normalize, archive.
// Corpus files are written inside the crawl activity so a retried activity
// starts from a clean slate, never from a half-written file.
func CrawlWorkflow(ctx workflow.Context, input CrawlInput) (*CrawlResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting crawl workflow", "platform", input.Platform, "account", input.Account)

	crawlCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        1 * time.Minute,
			NonRetryableErrorTypes: []string{AccountNotFoundErrorType, QuotaExceededErrorType},
		},
	})

	var summary crawler.Summary
	if err := workflow.ExecuteActivity(crawlCtx, CrawlActivityName, input).Get(ctx, &summary); err != nil {
		return nil, err
	}
	result := &CrawlResult{Summary: summary}

	localCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
		},
	})

	var prepared PrepareOutput
	prepareInput := PrepareInput{PrimaryPath: summary.PrimaryPath}
	if err := workflow.ExecuteActivity(localCtx, PrepareCorpusActivityName, prepareInput).Get(ctx, &prepared); err != nil {
		return nil, err
	}
	result.PreparedPath = prepared.Path
	result.PrepareStats = prepared.Stats

	archiveInput := ArchiveInput{
		RunID: workflow.GetInfo(ctx).WorkflowExecution.ID,
		Files: []string{summary.PrimaryPath, summary.NearDuplicatePath, prepared.Path},
	}
	var commit string
	if err := workflow.ExecuteActivity(localCtx, ArchiveCorpusActivityName, archiveInput).Get(ctx, &commit); err != nil {
		return nil, err
	}
	result.ArchiveCommit = commit

	logger.Info("Crawl workflow completed",
		"admitted", summary.Admitted,
		"near_duplicates", summary.NearDuplicates,
		"prepared", prepared.Stats.Kept,
		"commit", commit)
	return result, nil
}
