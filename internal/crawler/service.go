package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/commentscope/commentscope/internal/window"
	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/similarity"
)

// RecordWriter persists one corpus file. Implementations must be
// all-or-nothing: on error no partial file remains at path.
type RecordWriter func(path string, records []comment.Record) error

// ServiceConfig wires the orchestration layer.
type ServiceConfig struct {
	// SimilarityThreshold routes comments at or above this ratio to the
	// near-duplicate output.
	SimilarityThreshold float64
	ExclusionPatterns   []string
	OutputDir           string
	PrimaryFile         string
	NearDuplicateFile   string
}

// Service runs one crawl end to end: window parsing, client selection, the
// exclusion/similarity collector, and corpus persistence.
type Service struct {
	config  ServiceConfig
	clients map[comment.Platform]Client
	write   RecordWriter
}

// NewService creates a service over the given platform clients.
func NewService(config ServiceConfig, clients []Client, write RecordWriter) (*Service, error) {
	if write == nil {
		return nil, fmt.Errorf("record writer is required")
	}
	byPlatform := make(map[comment.Platform]Client, len(clients))
	for _, c := range clients {
		byPlatform[c.Platform()] = c
	}
	return &Service{
		config:  config,
		clients: byPlatform,
		write:   write,
	}, nil
}

// Run executes one crawl request. The caller always receives a summary with
// counts and elapsed time when output was written; traversal failures after
// partial collection still write the collected corpus and return the summary
// with Partial set. Quota exhaustion additionally surfaces ErrQuotaExceeded
// so callers can stop issuing crawls.
func (s *Service) Run(ctx context.Context, req Request) (*Summary, error) {
	start := time.Now()
	logger := logging.GetCrawlLogger(req.Platform, req.Account)

	platform, err := comment.ParsePlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	client, ok := s.clients[platform]
	if !ok {
		return nil, fmt.Errorf("no client configured for platform %s", platform)
	}

	// Both sources interpret the window in KST, following the reference
	// timezone of the collected communities.
	w, err := window.Parse(req.StartDate, req.EndDate, window.KST)
	if err != nil {
		return nil, err
	}
	if req.Account == "" {
		return nil, fmt.Errorf("account is required")
	}

	rules, err := NewRuleSet(s.config.ExclusionPatterns)
	if err != nil {
		return nil, err
	}
	// One index per crawl: the seen corpus is never shared across runs.
	simConfig := similarity.DefaultConfig()
	if s.config.SimilarityThreshold > 0 {
		simConfig.Threshold = s.config.SimilarityThreshold
	}
	index := similarity.NewIndex(simConfig)
	sink := NewCollector(rules, index)

	logger.Info().
		Str("start_date", req.StartDate).
		Str("end_date", req.EndDate).
		Msg("Starting crawl")

	crawlErr := client.Crawl(ctx, req.Account, w, sink)
	primary, nearDup, excluded := sink.Results()

	if crawlErr != nil && len(primary) == 0 && len(nearDup) == 0 {
		// Nothing collected: surface the failure as-is.
		return nil, crawlErr
	}

	summary := &Summary{
		Platform:          platform,
		Account:           req.Account,
		Admitted:          len(primary),
		NearDuplicates:    len(nearDup),
		Excluded:          excluded,
		PrimaryPath:       filepath.Join(s.config.OutputDir, s.config.PrimaryFile),
		NearDuplicatePath: filepath.Join(s.config.OutputDir, s.config.NearDuplicateFile),
		Partial:           crawlErr != nil,
	}

	// Output failure is fatal even when the crawl itself succeeded.
	if err := s.write(summary.PrimaryPath, primary); err != nil {
		return nil, fmt.Errorf("writing primary corpus: %w", err)
	}
	if err := s.write(summary.NearDuplicatePath, nearDup); err != nil {
		return nil, fmt.Errorf("writing near-duplicate corpus: %w", err)
	}

	summary.Elapsed = time.Since(start)

	if crawlErr != nil {
		logger.Warn().Err(crawlErr).
			Int("admitted", summary.Admitted).
			Msg("Crawl ended early, partial corpus written")
		if errors.Is(crawlErr, ErrQuotaExceeded) {
			return summary, crawlErr
		}
		return summary, nil
	}

	logger.Info().
		Int("admitted", summary.Admitted).
		Int("near_duplicates", summary.NearDuplicates).
		Int("excluded", summary.Excluded).
		Dur("elapsed", summary.Elapsed).
		Msg("Crawl complete")
	return summary, nil
}
