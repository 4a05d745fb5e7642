package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/metrics"
)

var jobNow = time.Date(2025, 3, 1, 17, 45, 0, 0, time.UTC)

type fakeInvoiceSweeper struct {
	asOf     time.Time
	affected int64
	err      error
}

func (f *fakeInvoiceSweeper) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	f.asOf = asOf
	return f.affected, f.err
}

type fakeQuotationSweeper struct {
	asOf     time.Time
	affected int64
	err      error
}

func (f *fakeQuotationSweeper) ExpireLapsed(_ context.Context, asOf time.Time) (int64, error) {
	f.asOf = asOf
	return f.affected, f.err
}

func TestStatusSweepJob_RunOnce(t *testing.T) {
	invoices := &fakeInvoiceSweeper{affected: 3}
	quotations := &fakeQuotationSweeper{affected: 2}
	job := NewStatusSweepJob(invoices, quotations, nil, zap.NewNop(), time.Minute)
	job.now = func() time.Time { return jobNow }

	overdue, expired, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), overdue)
	assert.Equal(t, int64(2), expired)

	midnight := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight, invoices.asOf)
	assert.Equal(t, midnight, quotations.asOf)
}

func TestStatusSweepJob_InvoiceFailureStillExpiresQuotations(t *testing.T) {
	invoices := &fakeInvoiceSweeper{err: errors.New("db down")}
	quotations := &fakeQuotationSweeper{affected: 1}
	job := NewStatusSweepJob(invoices, quotations, nil, zap.NewNop(), time.Minute)

	_, expired, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(1), expired)
	assert.False(t, quotations.asOf.IsZero())
}

func TestStatusSweepJob_RunRecordsMetrics(t *testing.T) {
	m := metrics.New(metrics.Config{ServiceName: "test", Environment: "test"})
	job := NewStatusSweepJob(&fakeInvoiceSweeper{}, &fakeQuotationSweeper{}, m, zap.NewNop(), time.Minute)

	job.Run()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if family.GetName() == "quotebook_job_runs_total" {
			found = true
		}
	}
	assert.True(t, found)
}

type fakeReminderSettings struct {
	accounts []domain.Setting
	prefs    []domain.NotificationSettings
	err      error
}

func (f *fakeReminderSettings) AccountsWithReminders(context.Context) ([]domain.Setting, []domain.NotificationSettings, error) {
	return f.accounts, f.prefs, f.err
}

type reminderCall struct {
	accountID uuid.UUID
	dueBy     time.Time
}

type fakeReminderSender struct {
	calls  []reminderCall
	failOn uuid.UUID
}

func (f *fakeReminderSender) RemindDue(ctx context.Context, dueBy time.Time) (int, int, error) {
	accountID, ok := auth.AccountID(ctx)
	if !ok {
		return 0, 0, errors.New("no account")
	}
	f.calls = append(f.calls, reminderCall{accountID: accountID, dueBy: dueBy})
	if accountID == f.failOn {
		return 0, 0, errors.New("smtp down")
	}
	return 2, 1, nil
}

func TestPaymentReminderJob_RunOnce(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	settings := &fakeReminderSettings{
		accounts: []domain.Setting{{AccountID: first}, {AccountID: second}},
		prefs: []domain.NotificationSettings{
			{PaymentReminders: true, ReminderDays: 3},
			{PaymentReminders: true, ReminderDays: 0},
		},
	}
	sender := &fakeReminderSender{}
	job := NewPaymentReminderJob(settings, sender, nil, zap.NewNop(), time.Minute)
	job.now = func() time.Time { return jobNow }

	summary, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReminderSummary{Accounts: 2, Sent: 4, Skipped: 2}, summary)

	require.Len(t, sender.calls, 2)
	assert.Equal(t, first, sender.calls[0].accountID)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), sender.calls[0].dueBy)
	assert.Equal(t, second, sender.calls[1].accountID)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), sender.calls[1].dueBy)
}

func TestPaymentReminderJob_AccountFailureDoesNotStopOthers(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	settings := &fakeReminderSettings{
		accounts: []domain.Setting{{AccountID: first}, {AccountID: second}},
		prefs:    []domain.NotificationSettings{{ReminderDays: 1}, {ReminderDays: 1}},
	}
	sender := &fakeReminderSender{failOn: first}
	job := NewPaymentReminderJob(settings, sender, nil, zap.NewNop(), time.Minute)

	summary, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Len(t, sender.calls, 2)
	assert.Equal(t, 2, summary.Sent)
}

func TestPaymentReminderJob_SettingsFailure(t *testing.T) {
	settings := &fakeReminderSettings{err: errors.New("db down")}
	sender := &fakeReminderSender{}
	job := NewPaymentReminderJob(settings, sender, nil, zap.NewNop(), time.Minute)

	_, err := job.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, sender.calls)
}
