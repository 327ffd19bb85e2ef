package ansible_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/fwojciec/matrixctl/ansible"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	t.Parallel()

	args, err := ansible.Args(matrixctl.PlaybookRun{
		Tags:      []string{"register-user"},
		ExtraVars: map[string]string{"username": "bob", "password": "pw", "admin": "yes"},
	})

	require.NoError(t, err)
	require.Len(t, args, 7)
	assert.Equal(t, []string{"-i", "inventory/hosts", "setup.yml", "--tags", "register-user", "--extra-vars"}, args[:6])
	assert.JSONEq(t, `{"username":"bob","password":"pw","admin":"yes"}`, args[6])
}

// fakePlaybook writes a shell script standing in for ansible-playbook that
// prints its arguments and ANSIBLE_CONFIG.
func fakePlaybook(t *testing.T, exitCode string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ansible-playbook")
	script := "#!/bin/sh\necho \"$@\"\necho \"cfg=$ANSIBLE_CONFIG\"\nexit " + exitCode + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunner_Run(t *testing.T) {
	// Not parallel: writing and executing scripts concurrently can fail
	// with ETXTBSY.

	t.Run("runs in the checkout with its ansible.cfg", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ansible.cfg"), []byte("[defaults]\n"), 0o644))

		var stdout bytes.Buffer
		r := ansible.NewRunner(dir, &stdout, &bytes.Buffer{}, zerolog.Nop())
		r.Binary = fakePlaybook(t, "0")

		err := r.Run(context.Background(), matrixctl.PlaybookRun{Tags: []string{"start"}})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "-i inventory/hosts setup.yml --tags start")
		assert.Contains(t, stdout.String(), "cfg="+filepath.Join(dir, "ansible.cfg"))
	})

	t.Run("reports a failed playbook", func(t *testing.T) {
		r := ansible.NewRunner(t.TempDir(), &bytes.Buffer{}, &bytes.Buffer{}, zerolog.Nop())
		r.Binary = fakePlaybook(t, "2")

		err := r.Run(context.Background(), matrixctl.PlaybookRun{Tags: []string{"stop"}})

		assert.Equal(t, matrixctl.ESERVER, matrixctl.ErrorCode(err))
	})

	t.Run("requires a checkout", func(t *testing.T) {
		err := ansible.NewRunner("", nil, nil, zerolog.Nop()).Run(context.Background(), matrixctl.PlaybookRun{})

		assert.Equal(t, matrixctl.ECONFIG, matrixctl.ErrorCode(err))
	})
}
