package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
)

// PayrollJobs retries document rendering for payslips stored without one
type PayrollJobs struct {
	payrollService payroll.PayrollService
	batchSize      int
	logger         *slog.Logger
}

func NewPayrollJobs(payrollService payroll.PayrollService, batchSize int, logger *slog.Logger) *PayrollJobs {
	if batchSize < 1 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollJobs{
		payrollService: payrollService,
		batchSize:      batchSize,
		logger:         logger,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("backfill_payslip_documents", interval, j.BackfillDocuments)
}

func (j *PayrollJobs) BackfillDocuments(ctx context.Context) error {
	rendered, err := j.payrollService.BackfillDocuments(ctx, j.batchSize)
	if err != nil {
		return err
	}
	if rendered > 0 {
		j.logger.Info("Cron: payslip documents backfilled", "count", rendered)
	}
	return nil
}
