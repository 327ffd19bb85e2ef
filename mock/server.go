package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.ServerService = (*ServerService)(nil)

// ServerService is a mock implementation of matrixctl.ServerService.
type ServerService struct {
	VersionFn func(ctx context.Context) (*matrixctl.ServerVersion, error)
}

func (s *ServerService) Version(ctx context.Context) (*matrixctl.ServerVersion, error) {
	return s.VersionFn(ctx)
}

var _ matrixctl.Playbook = (*Playbook)(nil)

// Playbook is a mock implementation of matrixctl.Playbook.
type Playbook struct {
	RunFn func(ctx context.Context, run matrixctl.PlaybookRun) error
}

func (p *Playbook) Run(ctx context.Context, run matrixctl.PlaybookRun) error {
	return p.RunFn(ctx, run)
}

var _ matrixctl.Updater = (*Updater)(nil)

// Updater is a mock implementation of matrixctl.Updater.
type Updater struct {
	UpdateFn func(ctx context.Context, path string) ([]*matrixctl.Commit, error)
}

func (u *Updater) Update(ctx context.Context, path string) ([]*matrixctl.Commit, error) {
	return u.UpdateFn(ctx, path)
}

var _ matrixctl.CommandRunner = (*CommandRunner)(nil)

// CommandRunner is a mock implementation of matrixctl.CommandRunner.
type CommandRunner struct {
	RunFn   func(ctx context.Context, command string) (*matrixctl.CommandResult, error)
	CloseFn func() error
}

func (r *CommandRunner) Run(ctx context.Context, command string) (*matrixctl.CommandResult, error) {
	return r.RunFn(ctx, command)
}

func (r *CommandRunner) Close() error {
	return r.CloseFn()
}
