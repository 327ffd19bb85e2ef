package main

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/fwojciec/matrixctl"
)

var unitPattern = regexp.MustCompile(`^[A-Za-z0-9@._:-]+$`)

// Run executes the start command.
func (c *StartCmd) Run(deps *Dependencies) error {
	if c.Unit != "" {
		return systemctl(deps, "restart", c.Unit)
	}
	if err := deps.Playbook.Run(deps.Ctx, matrixctl.PlaybookRun{Tags: []string{"start"}}); err != nil {
		return fail(deps, err)
	}
	return nil
}

// Run executes the stop command.
func (c *StopCmd) Run(deps *Dependencies) error {
	if c.Unit != "" {
		return systemctl(deps, "stop", c.Unit)
	}
	if err := deps.Playbook.Run(deps.Ctx, matrixctl.PlaybookRun{Tags: []string{"stop"}}); err != nil {
		return fail(deps, err)
	}
	return nil
}

// systemctl runs "systemctl <action> <unit>" on the homeserver host.
func systemctl(deps *Dependencies, action, unit string) error {
	if !unitPattern.MatchString(unit) {
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "%q is not a systemd unit name", unit))
	}
	runner, err := deps.OpenRunner(deps.Ctx)
	if err != nil {
		return fail(deps, err)
	}
	defer runner.Close()

	res, err := runner.Run(deps.Ctx, fmt.Sprintf("sudo systemctl %s %s", action, unit))
	if err != nil {
		return fail(deps, err)
	}
	if res.ExitCode != 0 {
		return fail(deps, matrixctl.Errorf(matrixctl.ESERVER, "systemctl %s %s exited with status %d: %s",
			action, unit, res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	fmt.Fprintf(deps.Stdout, "%s: %s\n", unit, action)
	return nil
}

// Run executes the update command.
func (c *UpdateCmd) Run(deps *Dependencies) error {
	path, key := deps.Config.Server.Ansible.Playbook, "ansible.playbook"
	if c.Synapse {
		path, key = deps.Config.Server.Synapse.Playbook, "synapse.playbook"
	}
	if path == "" {
		return fail(deps, matrixctl.Errorf(matrixctl.ECONFIG, "%s is not configured for server %q", key, deps.Config.ServerName))
	}

	commits, err := deps.Updater.Update(deps.Ctx, path)
	if err != nil {
		return fail(deps, err)
	}
	if len(commits) == 0 {
		fmt.Fprintln(deps.Stdout, "Already up to date")
		return nil
	}
	fmt.Fprintf(deps.Stdout, "Pulled %d commits:\n", len(commits))
	for _, commit := range commits {
		hash := commit.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		fmt.Fprintf(deps.Stdout, "  %s %s\n", hash, commit.Message)
	}
	return nil
}

// Run executes the version command.
func (c *VersionCmd) Run(deps *Dependencies) error {
	v, err := deps.Server.Version(deps.Ctx)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, map[string]string{
			"matrixctl": matrixctl.Version,
			"synapse":   v.ServerVersion,
		})
	}
	return keyValueTable(
		[]any{"matrixctl", matrixctl.Version},
		[]any{"synapse", v.ServerVersion},
	).Render(deps.Stdout)
}

// Run executes the maintenance command.
func (c *MaintenanceCmd) Run(deps *Dependencies) error {
	configured := deps.Config.Server.Maintenance.Tasks
	if c.List {
		for _, task := range configured {
			fmt.Fprintln(deps.Stdout, task)
		}
		return nil
	}
	if len(configured) == 0 {
		return fail(deps, matrixctl.Errorf(matrixctl.ECONFIG, "no maintenance tasks configured (maintenance.tasks)"))
	}

	tasks := c.Tasks
	if len(tasks) == 0 {
		tasks = configured
	}
	for _, task := range tasks {
		if !slices.Contains(configured, task) {
			return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "unknown maintenance task %q (configured: %s)",
				task, strings.Join(configured, ", ")))
		}
	}

	if err := deps.Playbook.Run(deps.Ctx, matrixctl.PlaybookRun{Tags: tasks}); err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Ran %s\n", strings.Join(tasks, ", "))
	return nil
}
