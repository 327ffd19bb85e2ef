package mock

import (
	"context"

	"github.com/fwojciec/matrixctl"
)

var _ matrixctl.ReportService = (*ReportService)(nil)

// ReportService is a mock implementation of matrixctl.ReportService.
type ReportService struct {
	FindReportsFn    func(ctx context.Context, filter matrixctl.ReportFilter) ([]*matrixctl.Report, int, error)
	FindReportByIDFn func(ctx context.Context, id int64) (*matrixctl.Report, error)
}

func (s *ReportService) FindReports(ctx context.Context, filter matrixctl.ReportFilter) ([]*matrixctl.Report, int, error) {
	return s.FindReportsFn(ctx, filter)
}

func (s *ReportService) FindReportByID(ctx context.Context, id int64) (*matrixctl.Report, error) {
	return s.FindReportByIDFn(ctx, id)
}
