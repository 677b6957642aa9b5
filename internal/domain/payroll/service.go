package payroll

import (
	"context"
	"io"
)

type PayrollService interface {
	// Preview computes a payslip without storing it.
	Preview(ctx context.Context, req CreatePayslipRequest) (PayslipResponse, error)
	Create(ctx context.Context, req CreatePayslipRequest) (PayslipResponse, error)
	RunBulk(ctx context.Context, req BulkPayslipRequest) (BulkPayslipResponse, error)
	// ImportBulk reads the entries of a bulk run from an xlsx sheet.
	ImportBulk(ctx context.Context, sheet io.Reader, req BulkPayslipRequest) (BulkPayslipResponse, error)

	GetByID(ctx context.Context, id string) (PayslipResponse, error)
	List(ctx context.Context, filter PayslipFilter) (ListPayslipResponse, error)
	OpenDocument(ctx context.Context, id string) (io.ReadCloser, string, error)

	// BackfillDocuments renders documents for up to limit payslips that have none.
	BackfillDocuments(ctx context.Context, limit int) (int, error)
}
