package corpus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentscope/commentscope/pkg/comment"
)

func TestArchiveCommitRun(t *testing.T) {
	dir := t.TempDir()
	repoDir := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(repoDir, 0755))

	csvPath := filepath.Join(dir, "comments.csv")
	require.NoError(t, WriteRecords(csvPath, []comment.Record{
		{PublishedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), Text: "보관될 댓글", SourceLink: "https://example.com/1"},
	}))

	archive, err := OpenArchive(repoDir)
	require.NoError(t, err)

	hash, err := archive.CommitRun("crawl-test-1", csvPath, filepath.Join(dir, "absent.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	// The run's files land under runs/<run-id>/ in the repo worktree.
	archived, err := os.ReadFile(filepath.Join(repoDir, "runs", "crawl-test-1", "comments.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(archived), "보관될 댓글")

	// A second run commits on top of the first.
	hash2, err := archive.CommitRun("crawl-test-2", csvPath)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func TestArchiveNothingToCommit(t *testing.T) {
	repoDir := t.TempDir()
	archive, err := OpenArchive(repoDir)
	require.NoError(t, err)

	_, err = archive.CommitRun("crawl-empty", filepath.Join(repoDir, "absent.csv"))
	assert.Error(t, err)
}
