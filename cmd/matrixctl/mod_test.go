package main_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fwojciec/matrixctl"
	main "github.com/fwojciec/matrixctl/cmd/matrixctl"
	"github.com/fwojciec/matrixctl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportsCmd_Run(t *testing.T) {
	t.Parallel()

	deps, stdout, _ := newDeps(t)
	reason := "spam"
	deps.Reports = &mock.ReportService{
		FindReportsFn: func(_ context.Context, filter matrixctl.ReportFilter) ([]*matrixctl.Report, int, error) {
			assert.True(t, filter.Forward)
			return []*matrixctl.Report{
				{ID: 2, RoomID: "!ops:example.org", Sender: "@spam:example.org", UserID: "@alice:example.org", Reason: &reason},
			}, 1, nil
		},
	}

	err := (&main.ReportsCmd{Forward: true}).Run(deps)

	require.NoError(t, err)
	out := stdout.String()
	assert.Contains(t, out, "@spam:example.org")
	assert.Contains(t, out, "spam")
	assert.Contains(t, out, "Showing 1 of 1 reports")
}

func TestReportCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("shows the report and the reported event", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps(t)
		deps.Reports = &mock.ReportService{
			FindReportByIDFn: func(_ context.Context, id int64) (*matrixctl.Report, error) {
				assert.Equal(t, int64(2), id)
				return &matrixctl.Report{
					ID:        2,
					EventID:   "$bad",
					EventJSON: json.RawMessage(`{"type":"m.room.message","content":{"body":"buy now"}}`),
				}, nil
			},
		}

		err := (&main.ReportCmd{ID: 2}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "$bad")
		assert.Contains(t, stdout.String(), `"body": "buy now"`)
	})

	t.Run("reports a missing report", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps(t)
		deps.Reports = &mock.ReportService{
			FindReportByIDFn: func(context.Context, int64) (*matrixctl.Report, error) {
				return nil, matrixctl.Errorf(matrixctl.ENOTFOUND, "report 9 not found")
			},
		}

		err := (&main.ReportCmd{ID: 9}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "report 9 not found")
	})
}

func TestRedactCmd_Run(t *testing.T) {
	t.Parallel()

	deps, stdout, _ := newDeps(t)
	deps.Events = &mock.EventService{
		RedactFn: func(_ context.Context, roomID, eventID, reason string) (string, error) {
			assert.Equal(t, "!ops:example.org", roomID)
			assert.Equal(t, "$bad", eventID)
			assert.Equal(t, "spam", reason)
			return "$redaction", nil
		},
	}

	err := (&main.RedactCmd{Room: "ops", Event: "$bad", Reason: "spam"}).Run(deps)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Redacted $bad ($redaction)")
}
