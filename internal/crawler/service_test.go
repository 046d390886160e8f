package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentscope/commentscope/internal/window"
	"github.com/commentscope/commentscope/pkg/comment"
)

// stubClient offers a fixed set of records and then returns err.
type stubClient struct {
	platform comment.Platform
	records  []comment.Record
	err      error
}

func (s *stubClient) Platform() comment.Platform { return s.platform }

func (s *stubClient) Crawl(ctx context.Context, account string, w window.Window, sink *Collector) error {
	sink.OfferBatch(s.records)
	return s.err
}

// memoryWriter records what would have been written.
type memoryWriter struct {
	files map[string][]comment.Record
	err   error
}

func (m *memoryWriter) write(path string, records []comment.Record) error {
	if m.err != nil {
		return m.err
	}
	if m.files == nil {
		m.files = make(map[string][]comment.Record)
	}
	m.files[path] = records
	return nil
}

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		ExclusionPatterns: DefaultExclusionPatterns,
		OutputDir:         "/tmp/corpus",
		PrimaryFile:       "comments.csv",
		NearDuplicateFile: "similar.csv",
	}
}

func testRequest() Request {
	return Request{
		Account:   "someaccount",
		Platform:  "youtube",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}
}

func TestServiceRunWritesBothCorpora(t *testing.T) {
	client := &stubClient{
		platform: comment.PlatformYouTube,
		records: []comment.Record{
			{PublishedAt: time.Now(), Text: "오늘 영상 정말 좋았어요", SourceLink: "https://example.com/1"},
			{PublishedAt: time.Now(), Text: "오늘 영상 정말 좋았어요!", SourceLink: "https://example.com/2"},
			{PublishedAt: time.Now(), Text: "이벤트 당첨 기원합니다", SourceLink: "https://example.com/3"},
		},
	}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Admitted)
	assert.Equal(t, 1, summary.NearDuplicates)
	assert.Equal(t, 1, summary.Excluded)
	assert.False(t, summary.Partial)
	assert.Greater(t, summary.Elapsed, time.Duration(0))

	assert.Len(t, writer.files["/tmp/corpus/comments.csv"], 1)
	assert.Len(t, writer.files["/tmp/corpus/similar.csv"], 1)
}

// An empty crawl is a valid result, not an error.
func TestServiceRunEmptyResult(t *testing.T) {
	client := &stubClient{platform: comment.PlatformYouTube}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Zero(t, summary.Admitted)
	assert.False(t, summary.Partial)
	assert.Contains(t, writer.files, "/tmp/corpus/comments.csv")
}

// A traversal failure after partial collection still writes the collected
// corpus and reports a partial summary without an error.
func TestServiceRunPartialFailure(t *testing.T) {
	client := &stubClient{
		platform: comment.PlatformYouTube,
		records: []comment.Record{
			{PublishedAt: time.Now(), Text: "실패 전에 수집된 댓글", SourceLink: "https://example.com/1"},
		},
		err: fmt.Errorf("pagination broke"),
	}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, summary.Partial)
	assert.Equal(t, 1, summary.Admitted)
	assert.Len(t, writer.files["/tmp/corpus/comments.csv"], 1)
}

// Quota exhaustion surfaces distinctly even when partials were written.
func TestServiceRunQuotaExceeded(t *testing.T) {
	client := &stubClient{
		platform: comment.PlatformYouTube,
		records: []comment.Record{
			{PublishedAt: time.Now(), Text: "한도 소진 전에 수집된 댓글", SourceLink: "https://example.com/1"},
		},
		err: fmt.Errorf("threads: %w", ErrQuotaExceeded),
	}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	require.NotNil(t, summary)
	assert.True(t, summary.Partial)
	assert.Len(t, writer.files["/tmp/corpus/comments.csv"], 1)
}

func TestServiceRunFailureWithNothingCollected(t *testing.T) {
	client := &stubClient{
		platform: comment.PlatformYouTube,
		err:      fmt.Errorf("%w: someaccount", ErrAccountNotFound),
	}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Empty(t, writer.files)
}

func TestServiceRunValidation(t *testing.T) {
	client := &stubClient{platform: comment.PlatformYouTube}
	writer := &memoryWriter{}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown platform", func(r *Request) { r.Platform = "tiktok" }},
		{"bad date format", func(r *Request) { r.StartDate = "01/01/2024" }},
		{"reversed window", func(r *Request) { r.StartDate = "2024-02-01"; r.EndDate = "2024-01-01" }},
		{"missing account", func(r *Request) { r.Account = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			_, err := svc.Run(context.Background(), req)
			assert.Error(t, err)
		})
	}
}

// Output write failure is fatal even when the crawl succeeded.
func TestServiceRunWriteFailure(t *testing.T) {
	client := &stubClient{
		platform: comment.PlatformYouTube,
		records: []comment.Record{
			{PublishedAt: time.Now(), Text: "기록되지 못할 댓글", SourceLink: "https://example.com/1"},
		},
	}
	writer := &memoryWriter{err: fmt.Errorf("disk full")}
	svc, err := NewService(testServiceConfig(), []Client{client}, writer.write)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), testRequest())
	assert.ErrorContains(t, err, "disk full")
}
