package service

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/storage"
	"github.com/straye-as/quotebook-api/internal/testutil"
)

func TestDocumentService_SendInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "Acme Corp")
	invoice := testutil.CreateTestInvoice(t, env.db, customer, "INV-007", domain.InvoiceStatusSave, 2450, fixedNow.AddDate(0, 0, 30))

	dto, err := env.documents.SendInvoice(ctx, invoice.ID, &domain.SendDocumentRequest{Message: "See you soon"})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, dto.Status)

	sent := env.mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, customer.Email, sent[0].To)
	assert.Equal(t, "Acme Corp", sent[0].ToName)
	assert.Contains(t, sent[0].Subject, "INV-007")
	assert.Contains(t, sent[0].Body, "See you soon")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "INV-007.pdf", sent[0].Attachments[0].Filename)
	assert.Equal(t, "%PDF-stub INV-007", string(sent[0].Attachments[0].Data))

	archived, err := env.archive.Get(ctx, storage.ArchiveKey(accountID, domain.DocumentKindInvoice, "INV-007.pdf"))
	require.NoError(t, err)
	defer archived.Close()
	content, err := io.ReadAll(archived)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub INV-007", string(content))

	got, err := env.invoices.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, got.Status)
}

func TestDocumentService_ResendKeepsLaterStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "")
	invoice := testutil.CreateTestInvoice(t, env.db, customer, "INV-001", domain.InvoiceStatusOverdue, 10, fixedNow.AddDate(0, 0, -3))
	quotation := testutil.CreateTestQuotation(t, env.db, customer, "QUO-001", domain.QuotationStatusAccepted, 10)

	inv, err := env.documents.SendInvoice(ctx, invoice.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOverdue, inv.Status)

	quo, err := env.documents.SendQuotation(ctx, quotation.ID, &domain.SendDocumentRequest{Email: "override@example.test"})
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusAccepted, quo.Status)

	sent := env.mailer.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "override@example.test", sent[1].To)
}

func TestDocumentService_SendRequiresRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "")
	require.NoError(t, env.db.Model(customer).Update("email", "").Error)
	quotation := testutil.CreateTestQuotation(t, env.db, customer, "QUO-001", domain.QuotationStatusSave, 10)

	_, err := env.documents.SendQuotation(ctx, quotation.ID, nil)
	assert.ErrorIs(t, err, ErrMissingRecipient)
	assert.Empty(t, env.mailer.sent())

	got, err := env.quotations.GetByID(ctx, quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusSave, got.Status)
}

func TestDocumentService_MailFailureKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "")
	quotation := testutil.CreateTestQuotation(t, env.db, customer, "QUO-001", domain.QuotationStatusSave, 10)
	env.mailer.err = errors.New("smtp down")

	_, err := env.documents.SendQuotation(ctx, quotation.ID, nil)
	require.Error(t, err)

	got, err := env.quotations.GetByID(ctx, quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusSave, got.Status)
}

func TestDocumentService_SendReminder(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "")
	unpaid := testutil.CreateTestInvoice(t, env.db, customer, "INV-001", domain.InvoiceStatusSent, 10, fixedNow)
	paid := testutil.CreateTestInvoice(t, env.db, customer, "INV-002", domain.InvoiceStatusPaid, 10, fixedNow)

	dto, err := env.documents.SendReminder(ctx, unpaid.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, dto.Status)

	sent := env.mailer.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Subject, "Payment reminder")

	_, err = env.documents.SendReminder(ctx, paid.ID, nil)
	assert.ErrorIs(t, err, ErrReminderNotAllowed)
	assert.Len(t, env.mailer.sent(), 1)
}

func TestDocumentService_RemindDue(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	withEmail := testutil.CreateTestCustomer(t, env.db, accountID, "")
	withoutEmail := testutil.CreateTestCustomer(t, env.db, accountID, "")
	require.NoError(t, env.db.Model(withoutEmail).Update("email", "").Error)

	dueBy := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	testutil.CreateTestInvoice(t, env.db, withEmail, "INV-001", domain.InvoiceStatusSent, 10, dueBy)
	testutil.CreateTestInvoice(t, env.db, withEmail, "INV-002", domain.InvoiceStatusOverdue, 10, dueBy.AddDate(0, 0, -10))
	testutil.CreateTestInvoice(t, env.db, withEmail, "INV-003", domain.InvoiceStatusPending, 10, dueBy.AddDate(0, 0, 1))
	testutil.CreateTestInvoice(t, env.db, withEmail, "INV-004", domain.InvoiceStatusPaid, 10, dueBy)
	testutil.CreateTestInvoice(t, env.db, withoutEmail, "INV-005", domain.InvoiceStatusSent, 10, dueBy)

	_, otherID := testutil.AccountContext()
	other := testutil.CreateTestCustomer(t, env.db, otherID, "")
	testutil.CreateTestInvoice(t, env.db, other, "INV-001", domain.InvoiceStatusSent, 10, dueBy)

	sent, skipped, err := env.documents.RemindDue(ctx, dueBy)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, skipped)

	for _, msg := range env.mailer.sent() {
		assert.Equal(t, withEmail.Email, msg.To)
	}
}

func TestDocumentService_PDFDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx, accountID := testutil.AccountContext()
	customer := testutil.CreateTestCustomer(t, env.db, accountID, "")
	quotation := testutil.CreateTestQuotation(t, env.db, customer, "QUO/2025/1", domain.QuotationStatusSave, 10)

	rendered, err := env.documents.QuotationPDF(ctx, quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2025-1.pdf", rendered.Filename)
	assert.Equal(t, "%PDF-stub QUO/2025/1", string(rendered.Content))

	otherCtx, _ := testutil.AccountContext()
	_, err = env.documents.QuotationPDF(otherCtx, quotation.ID)
	assert.ErrorIs(t, err, ErrQuotationNotFound)
}
