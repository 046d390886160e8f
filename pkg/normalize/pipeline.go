// Package normalize turns raw scraped comment text into analysis-ready
// strings. The pipeline is pure: no I/O, deterministic output, and
// re-applying it to its own output is a no-op.
package normalize

import (
	"strings"
	"unicode/utf8"
)

// Length admission bounds, in runes, applied after normalization.
const (
	MinLength = 5
	MaxLength = 300
)

// Pipeline applies an ordered sequence of stages to comment text.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates the canonical pipeline: trim, emoticon substitution,
// special-character stripping, NFC composition, repeat compression.
func NewPipeline() *Pipeline {
	return &Pipeline{
		stages: []Stage{
			&TrimStage{},
			NewEmoticonStage(),
			&SpecialCharStage{},
			&ComposeStage{},
			&RepeatStage{},
		},
	}
}

// Stages returns the names of the pipeline's stages in application order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Normalize runs all stages in order. The trailing trim keeps the transform
// idempotent when stripping exposes edge whitespace.
func (p *Pipeline) Normalize(text string) string {
	for _, s := range p.stages {
		text = s.Apply(text)
	}
	return strings.TrimSpace(text)
}

// Admissible reports whether normalized text falls inside the corpus length
// bounds. This is a terminal filter over pipeline output, not a stage:
// rejected text is dropped outright, never routed to the near-duplicate
// corpus.
func Admissible(normalized string) bool {
	n := utf8.RuneCountInString(normalized)
	return n >= MinLength && n <= MaxLength
}
