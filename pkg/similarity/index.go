// Package similarity provides near-duplicate suppression over the comment
// texts accumulated during a single crawl.
package similarity

import (
	"sync"
)

// DefaultThreshold is the ratio above which a comment counts as a
// near-duplicate of something already seen.
const DefaultThreshold = 0.5

// Classification is the outcome of offering a text to the index.
type Classification int

const (
	// Primary marks a novel text; it extends the seen corpus.
	Primary Classification = iota
	// NearDuplicate marks a text too similar to an already-accepted one.
	// Near-duplicates are routed to a side corpus, never discarded.
	NearDuplicate
)

func (c Classification) String() string {
	if c == NearDuplicate {
		return "near_duplicate"
	}
	return "primary"
}

// RatioFunc computes a similarity ratio in [0,1] between two strings.
type RatioFunc func(a, b string) float64

// Config configures index behavior. Threshold and ratio function are
// deliberately swappable so tuning never touches traversal logic.
type Config struct {
	Threshold float64   `json:"threshold"`
	Ratio     RatioFunc `json:"-"`
}

// DefaultConfig returns the default index configuration.
func DefaultConfig() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		Ratio:     Ratio,
	}
}

// Index owns the seen corpus of one crawl invocation. State is confined to
// that crawl; concurrent offering is serialized so classify-then-append is
// atomic.
type Index struct {
	mu        sync.Mutex
	threshold float64
	ratio     RatioFunc
	seen      []string
}

// NewIndex creates an index with an empty seen corpus.
func NewIndex(config *Config) *Index {
	if config == nil {
		config = DefaultConfig()
	}
	ratio := config.Ratio
	if ratio == nil {
		ratio = Ratio
	}
	return &Index{
		threshold: config.Threshold,
		ratio:     ratio,
	}
}

// Classify compares text against every string in the seen corpus. A ratio
// strictly above the threshold for any of them classifies the text as a
// near-duplicate; otherwise the text is primary and is appended to the seen
// corpus. Cost is linear in the corpus size per call.
func (ix *Index) Classify(text string) Classification {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, existing := range ix.seen {
		if ix.ratio(text, existing) > ix.threshold {
			return NearDuplicate
		}
	}

	ix.seen = append(ix.seen, text)
	return Primary
}

// Size returns the current seen-corpus size.
func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.seen)
}
