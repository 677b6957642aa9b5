package ledger

import (
	"context"
	"io"
)

// LedgerService defines the interface for ledger reporting
type LedgerService interface {
	// Summary aggregates the stored payslips for a filter and trend window
	Summary(ctx context.Context, q Query) (SummaryResponse, error)

	// Export writes the summary and the matching payslips as an xlsx workbook
	Export(ctx context.Context, q Query, w io.Writer) error

	// Departments lists departments for filter dropdowns
	Departments(ctx context.Context) ([]string, error)

	// Subscribe streams ledger events on a topic until cleanup is called
	Subscribe(ctx context.Context, topic string) (<-chan StreamEvent, func())
}
