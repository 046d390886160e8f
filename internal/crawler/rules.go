package crawler

import (
	"fmt"
	"regexp"
)

// DefaultExclusionPatterns rejects promotional and giveaway boilerplate:
// timestamps/mentions with colons, quiz answers, event posts.
var DefaultExclusionPatterns = []string{`:`, `정답`, `이벤트`}

// RuleSet is an ordered set of exclusion patterns applied to raw text before
// deduplication. A match causes unconditional rejection regardless of
// similarity.
type RuleSet struct {
	patterns []*regexp.Regexp
}

// NewRuleSet compiles the given regex fragments in order.
func NewRuleSet(patterns []string) (*RuleSet, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &RuleSet{patterns: compiled}, nil
}

// Match reports whether any pattern matches the text.
func (rs *RuleSet) Match(text string) bool {
	for _, re := range rs.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (rs *RuleSet) Len() int {
	return len(rs.patterns)
}
