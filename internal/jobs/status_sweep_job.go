package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/metrics"
)

// StatusSweepJobName is the name of the overdue/expiry sweep
const StatusSweepJobName = "status_sweep"

// InvoiceSweeper flags unpaid invoices whose due date has passed
type InvoiceSweeper interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// QuotationSweeper expires open quotations whose validity has passed
type QuotationSweeper interface {
	ExpireLapsed(ctx context.Context, asOf time.Time) (int64, error)
}

// StatusSweepJob moves documents whose dates have passed into their
// time-driven status: sent and pending invoices become overdue, open
// quotations become expired.
type StatusSweepJob struct {
	invoices   InvoiceSweeper
	quotations QuotationSweeper
	metrics    *metrics.Metrics
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NewStatusSweepJob creates the sweep. The timeout bounds a single run.
func NewStatusSweepJob(invoices InvoiceSweeper, quotations QuotationSweeper, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *StatusSweepJob {
	return &StatusSweepJob{
		invoices:   invoices,
		quotations: quotations,
		metrics:    m,
		logger:     logger,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Run executes one sweep. This is called by the scheduler according to the cron expression.
func (j *StatusSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	overdue, expired, err := j.RunOnce(ctx)
	duration := time.Since(start)
	j.metrics.JobRun(StatusSweepJobName, duration, err)

	if err != nil {
		j.logger.Error("status sweep failed",
			zap.Error(err),
			zap.Int64("invoices_overdue", overdue),
			zap.Int64("quotations_expired", expired),
			zap.Duration("duration", duration))
		return
	}
	j.logger.Info("status sweep completed",
		zap.Int64("invoices_overdue", overdue),
		zap.Int64("quotations_expired", expired),
		zap.Duration("duration", duration))
}

// RunOnce sweeps both collections against today's UTC date. A failure on one
// side does not stop the other.
func (j *StatusSweepJob) RunOnce(ctx context.Context) (overdue int64, expired int64, err error) {
	today := startOfDay(j.now())

	overdue, invoiceErr := j.invoices.MarkOverdue(ctx, today)
	expired, quotationErr := j.quotations.ExpireLapsed(ctx, today)
	return overdue, expired, errors.Join(invoiceErr, quotationErr)
}

// RegisterStatusSweepJob registers the sweep with the scheduler. When runOnStartup
// is true one sweep also runs immediately in a background goroutine so it
// doesn't block API startup.
func RegisterStatusSweepJob(scheduler *Scheduler, invoices InvoiceSweeper, quotations QuotationSweeper, m *metrics.Metrics, logger *zap.Logger, cronExpr string, timeout time.Duration, runOnStartup bool) error {
	job := NewStatusSweepJob(invoices, quotations, m, logger, timeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(StatusSweepJobName, cronExpr, job.Run)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
