package activities

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/commentscope/commentscope/internal/corpus"
	"github.com/commentscope/commentscope/internal/temporal/workflows"
	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/normalize"
)

func newActivityEnv(t *testing.T) *testsuite.TestActivityEnvironment {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	return testSuite.NewTestActivityEnvironment()
}

func TestPrepareCorpusActivity(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "comments.csv")
	preparedPath := filepath.Join(dir, "prepared.csv")
	require.NoError(t, corpus.WriteRecords(rawPath, []comment.Record{
		{PublishedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), Text: "오늘 너무 좋았어요 ❤️", SourceLink: "https://example.com/1"},
	}))

	SetGlobalCorpus(normalize.NewPipeline(), preparedPath, nil)
	t.Cleanup(func() { SetGlobalCorpus(nil, "", nil) })

	env := newActivityEnv(t)
	env.RegisterActivity(PrepareCorpusActivity)

	val, err := env.ExecuteActivity(PrepareCorpusActivity, workflows.PrepareInput{PrimaryPath: rawPath})
	require.NoError(t, err)

	var out workflows.PrepareOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, preparedPath, out.Path)
	assert.Equal(t, 1, out.Stats.Kept)

	rows, err := corpus.ReadRecords(preparedPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "오늘 너무 좋았어요 사랑해요", rows[0].Comment)
}

func TestPrepareCorpusActivityUninitialized(t *testing.T) {
	SetGlobalCorpus(nil, "", nil)

	env := newActivityEnv(t)
	env.RegisterActivity(PrepareCorpusActivity)

	_, err := env.ExecuteActivity(PrepareCorpusActivity, workflows.PrepareInput{PrimaryPath: "x.csv"})
	assert.Error(t, err)
}

func TestArchiveCorpusActivityDisabled(t *testing.T) {
	SetGlobalCorpus(normalize.NewPipeline(), "", nil)
	t.Cleanup(func() { SetGlobalCorpus(nil, "", nil) })

	env := newActivityEnv(t)
	env.RegisterActivity(ArchiveCorpusActivity)

	val, err := env.ExecuteActivity(ArchiveCorpusActivity, workflows.ArchiveInput{RunID: "crawl-x"})
	require.NoError(t, err)

	var commit string
	require.NoError(t, val.Get(&commit))
	assert.Empty(t, commit)
}

func TestArchiveCorpusActivityCommits(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "comments.csv")
	require.NoError(t, corpus.WriteRecords(csvPath, []comment.Record{
		{PublishedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), Text: "보관 활동 검증", SourceLink: "https://example.com/1"},
	}))

	repoDir := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repoDir, 0755))
	archive, err := corpus.OpenArchive(repoDir)
	require.NoError(t, err)
	SetGlobalCorpus(normalize.NewPipeline(), "", archive)
	t.Cleanup(func() { SetGlobalCorpus(nil, "", nil) })

	env := newActivityEnv(t)
	env.RegisterActivity(ArchiveCorpusActivity)

	val, err := env.ExecuteActivity(ArchiveCorpusActivity, workflows.ArchiveInput{
		RunID: "crawl-test",
		Files: []string{csvPath},
	})
	require.NoError(t, err)

	var commit string
	require.NoError(t, val.Get(&commit))
	assert.NotEmpty(t, commit)
}

func TestCrawlActivityUninitialized(t *testing.T) {
	SetGlobalService(nil)

	env := newActivityEnv(t)
	env.RegisterActivity(CrawlActivity)

	_, err := env.ExecuteActivity(CrawlActivity, workflows.CrawlInput{
		Account: "someaccount", Platform: "youtube",
		StartDate: "2024-01-01", EndDate: "2024-01-31",
	})
	assert.Error(t, err)
}
