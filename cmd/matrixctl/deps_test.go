package main_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/matrixctl"
	main "github.com/fwojciec/matrixctl/cmd/matrixctl"
	"github.com/rs/zerolog"
)

// newDeps returns dependencies for the example.org profile with a
// configured "ops" room alias. Services are left for each test to set.
func newDeps(t *testing.T) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	server := &matrixctl.Server{
		Name: "default",
		API:  matrixctl.API{Domain: "example.org", Token: "secret"},
		Alias: matrixctl.AliasConfig{Room: []matrixctl.RoomAlias{
			{Name: "ops", RoomID: "!ops:example.org"},
		}},
		Maintenance: matrixctl.MaintenanceConfig{Tasks: []string{"rust-synapse-compress-state", "run-postgres-vacuum"}},
	}
	server.ApplyDefaults()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	deps := &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
		Logger: zerolog.Nop(),
		Config: &matrixctl.Config{ServerName: "default", Server: server},
	}
	return deps, stdout, stderr
}

// viewer records previewed images.
type viewer struct {
	enabled bool
	shown   []string
}

func (v *viewer) Enabled() bool { return v.enabled }

func (v *viewer) Show(name string, data []byte) error {
	v.shown = append(v.shown, name)
	return nil
}
