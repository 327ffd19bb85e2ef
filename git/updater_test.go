package git_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/matrixctl"
	mgit "github.com/fwojciec/matrixctl/git"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(t *testing.T, repo *git.Repository, dir, name, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(message), 0o644))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)
	_, err = w.Commit(message+"\n\nbody", &git.CommitOptions{
		Author: &object.Signature{Name: "Ops", Email: "ops@example.org", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestUpdater_Update(t *testing.T) {
	t.Parallel()

	// Given an upstream playbook and a checkout of it
	upstreamDir := filepath.Join(t.TempDir(), "upstream")
	upstream, err := git.PlainInit(upstreamDir, false)
	require.NoError(t, err)
	commit(t, upstream, upstreamDir, "setup.yml", "initial")

	checkoutDir := filepath.Join(t.TempDir(), "checkout")
	_, err = git.PlainClone(checkoutDir, false, &git.CloneOptions{URL: upstreamDir})
	require.NoError(t, err)

	updater := mgit.NewUpdater(zerolog.Nop())

	// When nothing changed upstream
	commits, err := updater.Update(context.Background(), checkoutDir)

	// Then no commits are reported
	require.NoError(t, err)
	assert.Empty(t, commits)

	// When upstream gains two commits
	commit(t, upstream, upstreamDir, "a.yml", "add a")
	commit(t, upstream, upstreamDir, "b.yml", "add b")
	commits, err = updater.Update(context.Background(), checkoutDir)

	// Then both are reported newest first
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "add b", commits[0].Message)
	assert.Equal(t, "add a", commits[1].Message)
	assert.Equal(t, "Ops", commits[0].Author)
	_, err = os.Stat(filepath.Join(checkoutDir, "b.yml"))
	assert.NoError(t, err)
}

func TestUpdater_UpdateNotACheckout(t *testing.T) {
	t.Parallel()

	_, err := mgit.NewUpdater(zerolog.Nop()).Update(context.Background(), t.TempDir())

	assert.Equal(t, matrixctl.ECONFIG, matrixctl.ErrorCode(err))
}
