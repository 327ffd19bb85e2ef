// Package ansible drives the deployment playbook through ansible-playbook.
package ansible

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
)

// Defaults for the playbook layout.
const (
	DefaultBinary    = "ansible-playbook"
	DefaultPlaybook  = "setup.yml"
	DefaultInventory = "inventory/hosts"
)

// Ensure Runner implements matrixctl.Playbook at compile time.
var _ matrixctl.Playbook = (*Runner)(nil)

// Runner runs ansible-playbook inside a playbook checkout.
type Runner struct {
	// Dir is the playbook checkout.
	Dir string

	Binary string
	Stdout io.Writer
	Stderr io.Writer
	Logger zerolog.Logger
}

// NewRunner creates a Runner for the checkout at dir.
func NewRunner(dir string, stdout, stderr io.Writer, logger zerolog.Logger) *Runner {
	return &Runner{
		Dir:    dir,
		Binary: DefaultBinary,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}
}

// Args returns the ansible-playbook arguments for run.
func Args(run matrixctl.PlaybookRun) ([]string, error) {
	playbook := run.Playbook
	if playbook == "" {
		playbook = DefaultPlaybook
	}
	args := []string{"-i", DefaultInventory, playbook}
	if len(run.Tags) > 0 {
		args = append(args, "--tags", strings.Join(run.Tags, ","))
	}
	if len(run.ExtraVars) > 0 {
		vars, err := json.Marshal(run.ExtraVars)
		if err != nil {
			return nil, matrixctl.Errorf(matrixctl.EINVALID, "cannot encode extra vars: %v", err)
		}
		args = append(args, "--extra-vars", string(vars))
	}
	return args, nil
}

// Run runs the playbook and streams its output. ANSIBLE_CONFIG points at
// the checkout's ansible.cfg when one exists.
func (r *Runner) Run(ctx context.Context, run matrixctl.PlaybookRun) error {
	if r.Dir == "" {
		return matrixctl.Errorf(matrixctl.ECONFIG, "no playbook checkout configured (ansible.playbook)")
	}
	args, err := Args(run)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = os.Environ()
	if cfg := filepath.Join(r.Dir, "ansible.cfg"); fileExists(cfg) {
		cmd.Env = append(cmd.Env, "ANSIBLE_CONFIG="+cfg)
	}

	// Extra vars may carry passwords.
	r.Logger.Debug().Str("dir", r.Dir).Strs("tags", run.Tags).Int("extra_vars", len(run.ExtraVars)).Msg("running playbook")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return matrixctl.Errorf(matrixctl.ESERVER, "playbook failed with exit code %d", exitErr.ExitCode())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return matrixctl.Errorf(matrixctl.ECONFIG, "%s is not installed", r.Binary)
		}
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot run %s: %v", r.Binary, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
