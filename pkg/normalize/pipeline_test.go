package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmoticonSubstitution(t *testing.T) {
	p := NewPipeline()

	// The heart carries a variation selector, as Instagram renders it.
	got := p.Normalize("오늘 너무 좋았어요 ❤️")
	assert.Equal(t, "오늘 너무 좋았어요 사랑해요", got)
}

func TestNormalizeStages(t *testing.T) {
	p := NewPipeline()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim whitespace",
			input: "   진짜 좋아요   ",
			want:  "진짜 좋아요",
		},
		{
			name:  "caret smiley",
			input: "재밌었어요^^",
			want:  "재밌었어요좋아요",
		},
		{
			name:  "heart without variation selector",
			input: "좋아요 ♥",
			want:  "좋아요 사랑해요",
		},
		{
			name:  "special characters removed",
			input: "대박~~@ 최고!!",
			want:  "대박 최고!!",
		},
		{
			name:  "newlines collapse to one line",
			input: "첫줄\n둘째줄\r\n셋째줄",
			want:  "첫줄둘째줄셋째줄",
		},
		{
			name:  "repeated characters compress to two",
			input: "좋아요ㅠㅠㅠㅠㅠ!!!!!",
			want:  "좋아요ㅠㅠ!!",
		},
		{
			name:  "decomposed jamo composes",
			input: "좋아요", // NFD-decomposed 좋아요
			want:  "좋아요",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation kept",
			input: "정말요? 네, 맞아요. 좋네요!",
			want:  "정말요? 네, 맞아요. 좋네요!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	p := NewPipeline()

	samples := []string{
		"오늘 너무 좋았어요 ❤️",
		"❤️💕💘💗",                  // emoticons only
		"~!@#$%^&*()_+|<>/;'[]{}", // special characters only
		"이미 정규화된 평범한 문장입니다.",      // already NFC
		"  공백   과   기호 ***  ",
		"ㅋㅋㅋㅋㅋㅋㅋ 너무 웃겨요 🤣🤣🤣",
		"사랑해요♡♡♡♡",
		"멀티\n라인\n댓글\n입니다",
		"",
	}

	for _, s := range samples {
		once := p.Normalize(s)
		twice := p.Normalize(once)
		require.Equal(t, once, twice, "normalize must be idempotent for %q", s)
	}
}

func TestAdmissibleLengthBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		admit bool
	}{
		{"four runes dropped", strings.Repeat("가", 4), false},
		{"five runes kept", strings.Repeat("가", 5), true},
		{"three hundred runes kept", strings.Repeat("가", 300), true},
		{"three hundred one runes dropped", strings.Repeat("가", 301), false},
		{"empty dropped", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.admit, Admissible(tt.text))
		})
	}
}

func TestPipelineStageOrder(t *testing.T) {
	p := NewPipeline()
	assert.Equal(t, []string{
		"trim",
		"emoticon_substitution",
		"special_char_stripping",
		"nfc_composition",
		"repeat_compression",
	}, p.Stages())
}

func BenchmarkNormalize(b *testing.B) {
	p := NewPipeline()
	input := "오늘 공연 너무 좋았어요 ❤️❤️❤️ 다음에 또 와주세요!!!!! ㅠㅠㅠㅠ ^^"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Normalize(input)
	}
}
