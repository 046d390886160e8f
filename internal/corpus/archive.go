package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/commentscope/commentscope/pkg/logging"
)

// Archive keeps a git history of crawl outputs. Each archived run becomes
// one commit containing that run's corpus files under runs/<run-id>/.
type Archive struct {
	repo     *git.Repository
	repoPath string
}

// OpenArchive opens the archive repository at repoPath, initializing it on
// first use.
func OpenArchive(repoPath string) (*Archive, error) {
	repo, err := git.PlainOpen(repoPath)
	if err == git.ErrRepositoryNotExists {
		repo, err = git.PlainInit(repoPath, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive repository: %w", err)
	}
	return &Archive{repo: repo, repoPath: repoPath}, nil
}

// CommitRun copies the given corpus files into runs/<runID>/ and commits
// them, returning the commit hash.
func (a *Archive) CommitRun(runID string, files ...string) (string, error) {
	logger := logging.GetLogger("corpus-archive")

	runDir := filepath.Join("runs", runID)
	if err := os.MkdirAll(filepath.Join(a.repoPath, runDir), 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	w, err := a.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	archived := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				// Near-duplicate or prepared files may not exist for an
				// empty run.
				continue
			}
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		dest := filepath.Join(runDir, filepath.Base(file))
		if err := os.WriteFile(filepath.Join(a.repoPath, dest), data, 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", dest, err)
		}
		if _, err := w.Add(dest); err != nil {
			return "", fmt.Errorf("failed to add %s: %w", dest, err)
		}
		archived++
	}
	if archived == 0 {
		return "", fmt.Errorf("no corpus files to archive for run %s", runID)
	}

	commit, err := w.Commit(fmt.Sprintf("Archive crawl run %s", runID), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "commentscope",
			Email: "archive@commentscope.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	logger.Info().
		Str("run_id", runID).
		Int("files", archived).
		Str("commit", commit.String()).
		Msg("Archived crawl run")
	return commit.String(), nil
}
