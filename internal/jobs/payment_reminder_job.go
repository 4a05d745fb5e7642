package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/metrics"
)

// PaymentReminderJobName is the name of the daily reminder run
const PaymentReminderJobName = "payment_reminders"

// ReminderSettings lists the accounts that opted into payment reminders
type ReminderSettings interface {
	AccountsWithReminders(ctx context.Context) ([]domain.Setting, []domain.NotificationSettings, error)
}

// ReminderSender mails reminders for an account's unpaid invoices
type ReminderSender interface {
	RemindDue(ctx context.Context, dueBy time.Time) (sent int, skipped int, err error)
}

// ReminderSummary counts the outcome of one reminder run
type ReminderSummary struct {
	Accounts int
	Sent     int
	Skipped  int
}

// PaymentReminderJob sends reminders for invoices coming due within each
// account's configured reminder window.
type PaymentReminderJob struct {
	settings ReminderSettings
	sender   ReminderSender
	metrics  *metrics.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewPaymentReminderJob creates the reminder job. The timeout bounds a single run.
func NewPaymentReminderJob(settings ReminderSettings, sender ReminderSender, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *PaymentReminderJob {
	return &PaymentReminderJob{
		settings: settings,
		sender:   sender,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Run executes one reminder pass. This is called by the scheduler according to the cron expression.
func (j *PaymentReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	summary, err := j.RunOnce(ctx)
	duration := time.Since(start)
	j.metrics.JobRun(PaymentReminderJobName, duration, err)

	fields := []zap.Field{
		zap.Int("accounts", summary.Accounts),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", duration),
	}
	if err != nil {
		j.logger.Error("payment reminder run finished with errors", append(fields, zap.Error(err))...)
		return
	}
	j.logger.Info("payment reminder run completed", fields...)
}

// RunOnce reminds every opted-in account. Each account runs under its own
// account context; one account failing does not stop the others.
func (j *PaymentReminderJob) RunOnce(ctx context.Context) (ReminderSummary, error) {
	var summary ReminderSummary

	accounts, prefs, err := j.settings.AccountsWithReminders(ctx)
	if err != nil {
		return summary, err
	}

	today := startOfDay(j.now())
	var errs []error
	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summary.Accounts++

		dueBy := today.AddDate(0, 0, prefs[i].ReminderDays)
		sent, skipped, err := j.sender.RemindDue(auth.WithAccountID(ctx, account.AccountID), dueBy)
		summary.Sent += sent
		summary.Skipped += skipped
		if err != nil {
			j.logger.Warn("payment reminders failed for account",
				zap.String("account_id", account.AccountID.String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("account %s: %w", account.AccountID, err))
		}
	}
	return summary, errors.Join(errs...)
}

// RegisterPaymentReminderJob registers the reminder job with the scheduler.
func RegisterPaymentReminderJob(scheduler *Scheduler, settings ReminderSettings, sender ReminderSender, m *metrics.Metrics, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewPaymentReminderJob(settings, sender, m, logger, timeout)
	return scheduler.AddJob(PaymentReminderJobName, cronExpr, job.Run)
}
