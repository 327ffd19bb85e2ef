package synapse

import (
	"context"
	"strconv"

	"github.com/fwojciec/matrixctl"
)

// Ensure ReportService implements matrixctl.ReportService at compile time.
var _ matrixctl.ReportService = (*ReportService)(nil)

// ReportService implements matrixctl.ReportService.
type ReportService struct {
	client *Client
}

// NewReportService creates a new ReportService.
func NewReportService(client *Client) *ReportService {
	return &ReportService{client: client}
}

// FindReports lists event reports, newest first unless filter.Forward.
func (s *ReportService) FindReports(ctx context.Context, filter matrixctl.ReportFilter) ([]*matrixctl.Report, int, error) {
	req, err := s.client.Request(ctx, AdminV1+"/event_reports")
	if err != nil {
		return nil, 0, err
	}
	dir := "b"
	if filter.Forward {
		dir = "f"
	}
	req = req.WithParam("dir", dir)

	items, total, err := CollectPages(ctx, s.client.Fanout, req, "event_reports", filter.Limit, filter.From, s.client.Logger)
	if items == nil {
		return nil, total, err
	}
	reports, decodeErr := decodeItems[matrixctl.Report](items)
	if decodeErr != nil {
		return nil, total, decodeErr
	}
	return reports, total, err
}

// FindReportByID returns one report with the reported event.
func (s *ReportService) FindReportByID(ctx context.Context, id int64) (*matrixctl.Report, error) {
	req, err := s.client.Request(ctx, AdminV1+"/event_reports/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	var report matrixctl.Report
	if err := s.client.Do(ctx, req, &report); err != nil {
		if matrixctl.ErrorCode(err) == matrixctl.ENOTFOUND {
			return nil, matrixctl.Errorf(matrixctl.ENOTFOUND, "report %d not found", id)
		}
		return nil, err
	}
	return &report, nil
}
