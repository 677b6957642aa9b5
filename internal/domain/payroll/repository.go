package payroll

import "context"

// PayslipRepository stores computed payslips. A payslip is unique per (employee, period);
// writing the same pair again replaces the stored figures.
type PayslipRepository interface {
	// Upsert inserts or replaces the payslip for record.EmployeeID and record.Period.
	Upsert(ctx context.Context, record PayslipRecord) (PayslipRecord, error)
	GetByID(ctx context.Context, id string) (PayslipRecord, error)
	List(ctx context.Context, filter PayslipFilter) ([]PayslipRecord, int64, error)

	// Documents
	SetDocumentURL(ctx context.Context, id string, url string) error
	ListWithoutDocument(ctx context.Context, limit int) ([]PayslipRecord, error)
}
