// Package crawler drives per-source traversal under the shared date-window
// and exclusion policy, and accumulates the deduplicated corpus of one crawl
// invocation.
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/commentscope/commentscope/internal/window"
	"github.com/commentscope/commentscope/pkg/comment"
)

// ErrQuotaExceeded marks crawl-wide quota exhaustion on the API source.
// Callers should stop issuing further crawls instead of retrying.
var ErrQuotaExceeded = errors.New("api quota exceeded")

// ErrAccountNotFound marks a failed account/channel resolution.
var ErrAccountNotFound = errors.New("account not found")

// Client produces raw comment records from one remote source. Crawl offers
// every extracted record to the collector as traversal proceeds; on failure
// inside the traversal loop it returns the error with everything collected
// so far already in the collector.
type Client interface {
	Platform() comment.Platform
	Crawl(ctx context.Context, account string, w window.Window, sink *Collector) error
}

// Request identifies one crawl invocation.
type Request struct {
	Account   string `json:"account"`
	Platform  string `json:"platform"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Summary is what the caller always receives, partial success included.
type Summary struct {
	Platform          comment.Platform `json:"platform"`
	Account           string           `json:"account"`
	Admitted          int              `json:"admitted"`
	NearDuplicates    int              `json:"near_duplicates"`
	Excluded          int              `json:"excluded"`
	Elapsed           time.Duration    `json:"elapsed"`
	PrimaryPath       string           `json:"primary_path"`
	NearDuplicatePath string           `json:"near_duplicate_path"`
	// Partial is set when traversal ended early but collected data was
	// still written. An empty result with Partial unset is a valid crawl.
	Partial bool `json:"partial"`
}
