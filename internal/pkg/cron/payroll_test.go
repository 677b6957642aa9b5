package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backfillOnly implements the one method the job calls.
type backfillOnly struct {
	payroll.PayrollService
	limits   []int
	rendered int
	err      error
}

func (b *backfillOnly) BackfillDocuments(ctx context.Context, limit int) (int, error) {
	b.limits = append(b.limits, limit)
	return b.rendered, b.err
}

func TestPayrollJobs_BackfillDocuments_UsesBatchSize(t *testing.T) {
	svc := &backfillOnly{rendered: 3}
	s := NewScheduler(nil)
	NewPayrollJobs(svc, 25, nil).RegisterJobs(s, time.Minute)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int{25}, svc.limits)
}

func TestPayrollJobs_BackfillDocuments_DefaultBatch(t *testing.T) {
	svc := &backfillOnly{}

	require.NoError(t, NewPayrollJobs(svc, 0, nil).BackfillDocuments(context.Background()))

	assert.Equal(t, []int{50}, svc.limits)
}

func TestPayrollJobs_BackfillDocuments_Error(t *testing.T) {
	boom := errors.New("database unavailable")
	svc := &backfillOnly{err: boom}
	s := NewScheduler(nil)
	NewPayrollJobs(svc, 10, nil).RegisterJobs(s, time.Minute)

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "backfill_payslip_documents")
}
