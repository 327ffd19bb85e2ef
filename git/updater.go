// Package git updates the playbook checkout.
package git

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/fwojciec/matrixctl"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/rs/zerolog"
)

// Ensure Updater implements matrixctl.Updater at compile time.
var _ matrixctl.Updater = (*Updater)(nil)

// Updater fast-forwards a checkout from its origin remote.
type Updater struct {
	logger zerolog.Logger
}

// NewUpdater creates a new Updater.
func NewUpdater(logger zerolog.Logger) *Updater {
	return &Updater{logger: logger}
}

// Update pulls the checkout at path and returns the new commits, newest
// first. An up-to-date checkout returns an empty list.
func (u *Updater) Update(ctx context.Context, path string) ([]*matrixctl.Commit, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "%s is not a git checkout: %v", path, err)
	}
	before, err := repo.Head()
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot resolve HEAD of %s: %v", path, err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot open worktree of %s: %v", path, err)
	}

	u.logger.Debug().Str("path", path).Str("head", before.Hash().String()).Msg("pulling playbook")
	err = w.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		u.logger.Debug().Str("path", path).Msg("playbook is up to date")
		return []*matrixctl.Commit{}, nil
	}
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "cannot pull %s: %v", path, err)
	}

	after, err := repo.Head()
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot resolve HEAD of %s: %v", path, err)
	}
	return commitsBetween(ctx, repo, before.Hash(), after.Hash())
}

// commitsBetween walks the log from to back to from, exclusive.
func commitsBetween(ctx context.Context, repo *git.Repository, from, to plumbing.Hash) ([]*matrixctl.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: to})
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot read commit log: %v", err)
	}
	defer iter.Close()

	commits := []*matrixctl.Commit{}
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Hash == from {
			return storer.ErrStop
		}
		commits = append(commits, &matrixctl.Commit{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			Message: strings.TrimSpace(firstLine(c.Message)),
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return commits, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
