package crawler

import (
	"sync"

	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/similarity"
)

// Collector receives raw records during traversal and routes them through
// the exclusion rules and the similarity index. It is safe for concurrent
// use; classification-then-append is atomic so two near-simultaneous
// near-duplicates cannot both be admitted as primary.
type Collector struct {
	mu       sync.Mutex
	rules    *RuleSet
	index    *similarity.Index
	primary  []comment.Record
	nearDup  []comment.Record
	excluded int
}

// NewCollector creates a collector for one crawl invocation. The index owns
// that crawl's seen corpus and must not be shared across crawls.
func NewCollector(rules *RuleSet, index *similarity.Index) *Collector {
	return &Collector{rules: rules, index: index}
}

// Offer routes one record: exclusion first, then dedup classification.
// Excluded records are counted but never reach the similarity index.
func (c *Collector) Offer(rec comment.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offerLocked(rec)
}

// OfferBatch routes an ordered batch under one lock so a video's merged
// comment pages land contiguously in the output.
func (c *Collector) OfferBatch(recs []comment.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range recs {
		c.offerLocked(rec)
	}
}

func (c *Collector) offerLocked(rec comment.Record) {
	if c.rules.Match(rec.Text) {
		c.excluded++
		return
	}
	switch c.index.Classify(rec.Text) {
	case similarity.Primary:
		c.primary = append(c.primary, rec)
	case similarity.NearDuplicate:
		c.nearDup = append(c.nearDup, rec)
	}
}

// Results returns copies of the accumulated outputs and the excluded count.
func (c *Collector) Results() (primary, nearDup []comment.Record, excluded int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	primary = make([]comment.Record, len(c.primary))
	copy(primary, c.primary)
	nearDup = make([]comment.Record, len(c.nearDup))
	copy(nearDup, c.nearDup)
	return primary, nearDup, c.excluded
}
