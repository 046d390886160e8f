package similarity

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Ratio is the default similarity function: 2*M/T, where M is the number of
// runes common to both strings under a minimal diff and T their combined
// length. Equivalent in spirit to difflib's SequenceMatcher ratio.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)

	matched := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}

	return 2.0 * float64(matched) / float64(total)
}
