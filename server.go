package matrixctl

import (
	"context"
	"time"
)

// ServerVersion is the homeserver build information.
type ServerVersion struct {
	ServerVersion string `json:"server_version"`
	PythonVersion string `json:"python_version,omitempty"`
}

// ServerService reads homeserver metadata.
type ServerService interface {
	Version(ctx context.Context) (*ServerVersion, error)
}

// PlaybookRun describes one ansible-playbook invocation.
type PlaybookRun struct {
	// Playbook is the path to the playbook file or its checkout directory.
	Playbook  string
	Tags      []string
	ExtraVars map[string]string
}

// Playbook runs the deployment playbook.
type Playbook interface {
	Run(ctx context.Context, run PlaybookRun) error
}

// Commit is a commit pulled by an update.
type Commit struct {
	Hash    string
	Author  string
	Message string
	When    time.Time
}

// Updater pulls the latest playbook revision.
type Updater interface {
	// Update pulls the repository at path and returns the commits that
	// arrived, newest first.
	Update(ctx context.Context, path string) ([]*Commit, error)
}

// CommandResult is the captured outcome of a remote command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner runs shell commands on the homeserver host.
type CommandRunner interface {
	Run(ctx context.Context, command string) (*CommandResult, error)
	Close() error
}
