package main

import (
	"fmt"

	"github.com/fwojciec/matrixctl"
)

// Run executes the reports command.
func (c *ReportsCmd) Run(deps *Dependencies) error {
	reports, total, err := deps.Reports.FindReports(deps.Ctx, matrixctl.ReportFilter{
		Limit:   c.Limit,
		From:    c.From,
		Forward: c.Forward,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", matrixctl.ErrorMessage(err))
		if reports == nil {
			return err
		}
	}

	renderErr := output(deps, reports, func() *matrixctl.Table {
		t := &matrixctl.Table{
			Headers:        []string{"Id", "Received", "Room", "Sender", "Reporter", "Reason", "Score"},
			MaxColumnWidth: 40,
		}
		for _, r := range reports {
			room := any(r.RoomID)
			if r.Name != nil && *r.Name != "" {
				room = *r.Name + "\n" + r.RoomID
			}
			t.AddRow(r.ID, matrixctl.FormatTimestamp(r.ReceivedTS), room, r.Sender, r.UserID, r.Reason, r.Score)
		}
		return t
	})
	if renderErr != nil {
		return renderErr
	}
	if !deps.JSON {
		fmt.Fprintf(deps.Stdout, "Showing %d of %d reports\n", len(reports), total)
	}
	return err
}

// Run executes the report command.
func (c *ReportCmd) Run(deps *Dependencies) error {
	r, err := deps.Reports.FindReportByID(deps.Ctx, c.ID)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, r)
	}

	if err := keyValueTable(
		[]any{"Id", r.ID},
		[]any{"Received", matrixctl.FormatTimestamp(r.ReceivedTS)},
		[]any{"Room", r.RoomID},
		[]any{"Room name", r.Name},
		[]any{"Room alias", r.CanonicalAlias},
		[]any{"Event", r.EventID},
		[]any{"Sender", r.Sender},
		[]any{"Reporter", r.UserID},
		[]any{"Reason", r.Reason},
		[]any{"Score", r.Score},
	).Render(deps.Stdout); err != nil {
		return err
	}
	if len(r.EventJSON) == 0 {
		return nil
	}
	fmt.Fprintln(deps.Stdout)
	return printRaw(deps.Stdout, r.EventJSON)
}

// Run executes the redact command.
func (c *RedactCmd) Run(deps *Dependencies) error {
	room, err := roomID(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	event, err := eventID(c.Event)
	if err != nil {
		return fail(deps, err)
	}
	redaction, err := deps.Events.Redact(deps.Ctx, room, event, c.Reason)
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Redacted %s (%s)\n", event, redaction)
	return nil
}
