package matrixctl

import (
	"context"
	"encoding/json"
)

// Report is an event report filed by a user.
type Report struct {
	ID             int64           `json:"id"`
	ReceivedTS     int64           `json:"received_ts"`
	RoomID         string          `json:"room_id"`
	Name           *string         `json:"name"`
	EventID        string          `json:"event_id"`
	UserID         string          `json:"user_id"`
	Reason         *string         `json:"reason"`
	Score          *int            `json:"score"`
	Sender         string          `json:"sender"`
	CanonicalAlias *string         `json:"canonical_alias"`
	EventJSON      json.RawMessage `json:"event_json,omitempty"`
}

// ReportFilter selects reports for FindReports.
type ReportFilter struct {
	// Limit is the number of reports to return. Zero returns all reports.
	Limit int
	From  int
	// Forward lists the oldest reports first.
	Forward bool
}

// ReportService reads moderation reports.
type ReportService interface {
	// FindReports lists reports, fetching pages concurrently. It also
	// returns the server-side total.
	FindReports(ctx context.Context, filter ReportFilter) ([]*Report, int, error)

	// FindReportByID returns one report including the reported event.
	// Returns ENOTFOUND if the report does not exist.
	FindReportByID(ctx context.Context, id int64) (*Report, error)
}
