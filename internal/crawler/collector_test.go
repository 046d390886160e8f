package crawler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/similarity"
)

func rec(text string) comment.Record {
	return comment.Record{
		PublishedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Text:        text,
		SourceLink:  "https://example.com/post",
	}
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	rules, err := NewRuleSet(DefaultExclusionPatterns)
	require.NoError(t, err)
	return NewCollector(rules, similarity.NewIndex(nil))
}

// Exclusion wins over similarity: an excluded text never reaches the index,
// so it cannot later make a novel comment look like a near-duplicate.
func TestCollectorExclusionPrecedesSimilarity(t *testing.T) {
	c := newTestCollector(t)

	c.Offer(rec("이벤트 응모 완료했어요"))
	c.Offer(rec("오늘 영상 정말 좋았어요"))
	c.Offer(rec("오늘 영상 정말 좋았어요!"))

	primary, nearDup, excluded := c.Results()
	assert.Equal(t, 1, excluded)
	require.Len(t, primary, 1)
	assert.Equal(t, "오늘 영상 정말 좋았어요", primary[0].Text)
	require.Len(t, nearDup, 1)
	assert.Equal(t, "오늘 영상 정말 좋았어요!", nearDup[0].Text)
}

func TestCollectorBatchKeepsOrder(t *testing.T) {
	c := newTestCollector(t)

	batch := []comment.Record{
		rec("첫 댓글은 날씨 이야기입니다"),
		rec("맛집 다녀온 후기 올려요"),
		rec("여행 계획 공유해 주세요"),
	}
	c.OfferBatch(batch)

	primary, _, _ := c.Results()
	require.Len(t, primary, 3)
	for i, want := range batch {
		assert.Equal(t, want.Text, primary[i].Text)
	}
}

// Two goroutines offering the same text cannot both be admitted as primary.
func TestCollectorConcurrentOffers(t *testing.T) {
	c := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Offer(rec("동시에 도착한 똑같은 댓글"))
		}()
	}
	wg.Wait()

	primary, nearDup, _ := c.Results()
	assert.Len(t, primary, 1)
	assert.Len(t, nearDup, 15)
}

func TestCollectorResultsAreCopies(t *testing.T) {
	c := newTestCollector(t)
	c.Offer(rec("복사본 검증용 댓글입니다"))

	primary, _, _ := c.Results()
	primary[0].Text = "mutated"

	again, _, _ := c.Results()
	assert.Equal(t, "복사본 검증용 댓글입니다", again[0].Text)
}

func BenchmarkCollectorOffer(b *testing.B) {
	rules, err := NewRuleSet(DefaultExclusionPatterns)
	if err != nil {
		b.Fatal(err)
	}
	c := NewCollector(rules, similarity.NewIndex(nil))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Offer(rec(fmt.Sprintf("벤치마크 전용 댓글 %d", i)))
	}
}
