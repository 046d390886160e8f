package normalize

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Stage is a single pure text transformation. Stages must be deterministic
// and produce a fixed point when re-applied to their own output.
type Stage interface {
	Name() string
	Apply(text string) string
}

// TrimStage coerces blank input to the empty string and strips
// leading/trailing whitespace.
type TrimStage struct{}

func (s *TrimStage) Name() string { return "trim" }

func (s *TrimStage) Apply(text string) string {
	return strings.TrimSpace(text)
}

// emoticonGloss maps a symbol sequence to a short Korean sentiment gloss.
type emoticonGloss struct {
	Symbol string
	Gloss  string
}

// emoticonTable is the fixed substitution table. Order here is cosmetic;
// matching is longest-symbol-first regardless.
var emoticonTable = []emoticonGloss{
	{"❤️", "사랑해요"}, {"🧡", "사랑해요"}, {"💛", "사랑해요"}, {"💚", "사랑해요"},
	{"💙", "사랑해요"}, {"💞", "사랑해요"}, {"💓", "사랑해요"}, {"💜", "사랑해요"},
	{"❣️", "사랑해요"}, {"💕", "사랑해요"}, {"💘", "사랑해요"}, {"💗", "사랑해요"},
	{"💝", "사랑해요"}, {"💟", "사랑해요"}, {"😻", "사랑해요"}, {"💔", "싫어해요"},
	{"👍", "최고에요"}, {"👎", "최악이에요"}, {"🙌", "만세"}, {"😘", "사랑해요"},
	{"😍", "사랑해요"}, {"😃", "좋아요"}, {"😄", "좋아요"}, {"😁", "좋아요"},
	{"😆", "좋아요"}, {"☺️", "좋아요"}, {"😊", "좋아요"}, {"😚", "좋아요"},
	{"🤗", "좋아요"}, {"😭", "슬퍼요"}, {"😢", "슬퍼요"}, {"😤", "삐졌어요"},
	{"😠", "화났어요"}, {"😡", "화났어요"}, {"🤬", "화났어요"}, {"😳", "잘 모르겠어요"},
	{"🤔", "고민해 볼게요"}, {"^^", "좋아요"}, {"♡", "사랑해요"}, {"♥", "사랑해요"},
}

// EmoticonStage substitutes emoticons and sentiment symbols with Korean
// glosses. All symbols are compiled into a single alternation so overlapping
// symbol prefixes cannot double-substitute within one pass.
type EmoticonStage struct {
	pattern *regexp.Regexp
	glosses map[string]string
}

// NewEmoticonStage builds the substitution stage from the fixed table.
func NewEmoticonStage() *EmoticonStage {
	symbols := make([]string, 0, len(emoticonTable))
	glosses := make(map[string]string, len(emoticonTable))
	for _, e := range emoticonTable {
		symbols = append(symbols, e.Symbol)
		glosses[e.Symbol] = e.Gloss
	}

	// Longest symbol first so "❤️" wins over any shorter prefix.
	sort.Slice(symbols, func(i, j int) bool {
		if len(symbols[i]) != len(symbols[j]) {
			return len(symbols[i]) > len(symbols[j])
		}
		return symbols[i] < symbols[j]
	})

	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = regexp.QuoteMeta(s)
	}

	return &EmoticonStage{
		pattern: regexp.MustCompile(strings.Join(quoted, "|")),
		glosses: glosses,
	}
}

func (s *EmoticonStage) Name() string { return "emoticon_substitution" }

func (s *EmoticonStage) Apply(text string) string {
	return s.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return s.glosses[match]
	})
}

// specialCharPattern matches everything except word characters, whitespace
// and the retained punctuation set.
var specialCharPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s!?.,]`)

// newlineReplacer collapses multi-line comments to one logical line.
var newlineReplacer = strings.NewReplacer("\r", "", "\n", "")

// SpecialCharStage strips characters outside word characters, whitespace and
// `! ? . ,`, and removes literal newlines.
type SpecialCharStage struct{}

func (s *SpecialCharStage) Name() string { return "special_char_stripping" }

func (s *SpecialCharStage) Apply(text string) string {
	text = newlineReplacer.Replace(text)
	return specialCharPattern.ReplaceAllString(text, "")
}

// ComposeStage applies Unicode NFC so decomposed Jamo sequences collapse
// into composed Hangul syllables.
type ComposeStage struct{}

func (s *ComposeStage) Name() string { return "nfc_composition" }

func (s *ComposeStage) Apply(text string) string {
	return norm.NFC.String(text)
}

// RepeatStage compresses any rune repeated three or more times consecutively
// down to exactly two occurrences.
type RepeatStage struct{}

func (s *RepeatStage) Name() string { return "repeat_compression" }

func (s *RepeatStage) Apply(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var prev rune = -1
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run <= 2 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
