package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/document"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mailer"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/storage"
)

const pdfContentType = "application/pdf"

// RenderedDocument is a PDF ready for download
type RenderedDocument struct {
	Filename string
	Content  []byte
}

// DocumentService renders, sends and archives quotations and invoices
type DocumentService struct {
	quotations *QuotationService
	invoices   *InvoiceService
	settings   *SettingsService
	renderer   document.Renderer
	mailer     mailer.Mailer
	archive    storage.Storage
	activities *ActivityService
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewDocumentService wires the document collaborators. archive may be nil, in
// which case sent documents are not archived.
func NewDocumentService(
	quotations *QuotationService,
	invoices *InvoiceService,
	settings *SettingsService,
	renderer document.Renderer,
	m mailer.Mailer,
	archive storage.Storage,
	activities *ActivityService,
	mt *metrics.Metrics,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		quotations: quotations,
		invoices:   invoices,
		settings:   settings,
		renderer:   renderer,
		mailer:     m,
		archive:    archive,
		activities: activities,
		metrics:    mt,
		logger:     logger,
	}
}

// QuotationPDF renders a quotation
func (s *DocumentService) QuotationPDF(ctx context.Context, id uuid.UUID) (*RenderedDocument, error) {
	quotation, err := s.quotations.get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.quotationDocument(ctx, quotation, document.PurposeDelivery, "")
	if err != nil {
		return nil, err
	}
	return s.render(ctx, doc)
}

// InvoicePDF renders an invoice
func (s *DocumentService) InvoicePDF(ctx context.Context, id uuid.UUID) (*RenderedDocument, error) {
	invoice, err := s.invoices.get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.invoiceDocument(ctx, invoice, document.PurposeDelivery, "")
	if err != nil {
		return nil, err
	}
	return s.render(ctx, doc)
}

// SendQuotation mails the quotation PDF to the customer, archives it and moves
// a draft to sent. Quotations past sent keep their status.
func (s *DocumentService) SendQuotation(ctx context.Context, id uuid.UUID, req *domain.SendDocumentRequest) (*domain.QuotationDTO, error) {
	quotation, err := s.quotations.get(ctx, id)
	if err != nil {
		return nil, err
	}
	recipient, err := resolveRecipient(quotation.Customer, req)
	if err != nil {
		return nil, err
	}

	doc, err := s.quotationDocument(ctx, quotation, document.PurposeDelivery, requestMessage(req))
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, doc, quotation.Customer, recipient); err != nil {
		return nil, err
	}

	if quotation.Status.CanTransitionTo(domain.QuotationStatusSent) {
		if err := s.quotations.transition(ctx, quotation, domain.QuotationStatusSent); err != nil {
			return nil, err
		}
	}

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation sent", fmt.Sprintf("Quotation %s was sent to %s", quotation.QuotationNumber, recipient))

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// SendInvoice mails the invoice PDF to the customer, archives it and moves a
// draft or pending invoice to sent. Overdue and paid invoices keep their status.
func (s *DocumentService) SendInvoice(ctx context.Context, id uuid.UUID, req *domain.SendDocumentRequest) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoices.get(ctx, id)
	if err != nil {
		return nil, err
	}
	recipient, err := resolveRecipient(invoice.Customer, req)
	if err != nil {
		return nil, err
	}

	doc, err := s.invoiceDocument(ctx, invoice, document.PurposeDelivery, requestMessage(req))
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, doc, invoice.Customer, recipient); err != nil {
		return nil, err
	}

	if invoice.Status.CanTransitionTo(domain.InvoiceStatusSent) {
		if err := s.invoices.transition(ctx, invoice, domain.InvoiceStatusSent); err != nil {
			return nil, err
		}
	}

	s.activities.Record(ctx, domain.ActivityTargetInvoice, invoice.ID,
		"Invoice sent", fmt.Sprintf("Invoice %s was sent to %s", invoice.InvoiceNumber, recipient))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// SendReminder mails a payment reminder with the invoice attached. The status is unchanged.
func (s *DocumentService) SendReminder(ctx context.Context, id uuid.UUID, req *domain.SendDocumentRequest) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoices.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.remind(ctx, invoice, req); err != nil {
		return nil, err
	}
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// remind is shared by the endpoint and the reminder job
func (s *DocumentService) remind(ctx context.Context, invoice *domain.Invoice, req *domain.SendDocumentRequest) error {
	if !invoice.Status.CanRemind() {
		return fmt.Errorf("%w: invoice %s is %s", ErrReminderNotAllowed, invoice.InvoiceNumber, invoice.Status)
	}
	recipient, err := resolveRecipient(invoice.Customer, req)
	if err != nil {
		return err
	}

	doc, err := s.invoiceDocument(ctx, invoice, document.PurposeReminder, requestMessage(req))
	if err != nil {
		return err
	}
	rendered, err := s.render(ctx, doc)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, s.message(doc, invoice.Customer, recipient, rendered))
	s.metrics.Dispatch(string(doc.Kind), string(doc.Purpose), err)
	if err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetInvoice, invoice.ID,
		"Payment reminder sent", fmt.Sprintf("Reminder for invoice %s was sent to %s", invoice.InvoiceNumber, recipient))
	return nil
}

// RemindDue sends reminders for the account's unpaid invoices due on or before
// dueBy. Invoices whose customer has no email are skipped.
func (s *DocumentService) RemindDue(ctx context.Context, dueBy time.Time) (sent int, skipped int, err error) {
	if _, err := requireAccount(ctx); err != nil {
		return 0, 0, err
	}
	candidates, err := s.invoices.invoiceRepo.ListReminderCandidates(ctx, dueBy)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	var errs []error
	for i := range candidates {
		invoice := &candidates[i]
		if invoice.Customer == nil || strings.TrimSpace(invoice.Customer.Email) == "" {
			skipped++
			continue
		}
		if err := s.remind(ctx, invoice, nil); err != nil {
			errs = append(errs, fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, err))
			continue
		}
		sent++
	}
	return sent, skipped, errors.Join(errs...)
}

// deliver renders, mails and archives a document
func (s *DocumentService) deliver(ctx context.Context, doc *document.Document, customer *domain.Customer, recipient string) error {
	rendered, err := s.render(ctx, doc)
	if err != nil {
		return err
	}

	err = s.mailer.Send(ctx, s.message(doc, customer, recipient, rendered))
	s.metrics.Dispatch(string(doc.Kind), string(doc.Purpose), err)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", doc.Kind, err)
	}

	s.store(ctx, doc, rendered)
	return nil
}

// store archives the sent PDF. Archive failures are logged; the mail already went out.
func (s *DocumentService) store(ctx context.Context, doc *document.Document, rendered *RenderedDocument) {
	if s.archive == nil {
		return
	}
	accountID, err := requireAccount(ctx)
	if err != nil {
		return
	}
	key := storage.ArchiveKey(accountID, doc.Kind, rendered.Filename)
	if _, err := s.archive.Put(ctx, key, pdfContentType, bytes.NewReader(rendered.Content)); err != nil {
		s.logger.Warn("failed to archive document",
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *DocumentService) render(ctx context.Context, doc *document.Document) (*RenderedDocument, error) {
	content, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s %s: %w", doc.Kind, doc.Number, err)
	}
	return &RenderedDocument{Filename: doc.Filename(), Content: content}, nil
}

func (s *DocumentService) message(doc *document.Document, customer *domain.Customer, recipient string, rendered *RenderedDocument) *mailer.Message {
	name := "customer"
	if customer != nil && customer.Name != "" {
		name = customer.Name
	}
	subject := fmt.Sprintf("%s %s from %s", doc.Title(), doc.Number, doc.Company.Name)
	body := fmt.Sprintf("Dear %s,\n\nPlease find attached %s %s for %s.\n",
		name, strings.ToLower(doc.Title()), doc.Number, document.FormatMoney(doc.Amount, doc.Currency))
	if doc.Purpose == document.PurposeReminder {
		subject = fmt.Sprintf("Payment reminder: %s %s", doc.Title(), doc.Number)
		body = fmt.Sprintf("Dear %s,\n\nThis is a reminder that invoice %s for %s is due on %s.\n",
			name, doc.Number, document.FormatMoney(doc.Amount, doc.Currency), mapper.FormatDate(doc.DueDate))
	}
	if doc.Message != "" {
		body += "\n" + doc.Message + "\n"
	}
	body += "\nKind regards,\n" + doc.Company.Name + "\n"

	return &mailer.Message{
		To:      recipient,
		ToName:  name,
		Subject: subject,
		Body:    body,
		Attachments: []mailer.Attachment{
			{Filename: rendered.Filename, ContentType: pdfContentType, Data: rendered.Content},
		},
	}
}

func (s *DocumentService) quotationDocument(ctx context.Context, q *domain.Quotation, purpose document.Purpose, message string) (*document.Document, error) {
	doc, err := s.baseDocument(ctx, purpose, message)
	if err != nil {
		return nil, err
	}
	doc.Kind = domain.DocumentKindQuotation
	doc.Number = q.QuotationNumber
	doc.Status = string(q.Status)
	doc.Date = q.Date
	doc.ValidUntil = q.ValidUntil
	doc.Items = mapper.ParseItems(q.Items)
	doc.Amount = q.Amount
	if q.Customer != nil {
		doc.Customer = *q.Customer
	}
	if q.Notes != "" {
		doc.Notes = q.Notes
	}
	return doc, nil
}

func (s *DocumentService) invoiceDocument(ctx context.Context, inv *domain.Invoice, purpose document.Purpose, message string) (*document.Document, error) {
	doc, err := s.baseDocument(ctx, purpose, message)
	if err != nil {
		return nil, err
	}
	doc.Kind = domain.DocumentKindInvoice
	doc.Number = inv.InvoiceNumber
	doc.Status = string(inv.Status)
	doc.Date = inv.Date
	doc.DueDate = inv.DueDate
	doc.Items = mapper.ParseItems(inv.Items)
	doc.Amount = inv.Amount
	if inv.Customer != nil {
		doc.Customer = *inv.Customer
	}
	if inv.Notes != "" {
		doc.Notes = inv.Notes
	}
	return doc, nil
}

func (s *DocumentService) baseDocument(ctx context.Context, purpose document.Purpose, message string) (*document.Document, error) {
	company, err := s.settings.Company(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.settings.Invoice(ctx)
	if err != nil {
		return nil, err
	}
	return &document.Document{
		Purpose:  purpose,
		Company:  company,
		Notes:    prefs.DefaultNotes,
		Terms:    prefs.DefaultTerms,
		Currency: prefs.Currency,
		Message:  message,
	}, nil
}

// resolveRecipient picks the override address from the request or the customer's email
func resolveRecipient(customer *domain.Customer, req *domain.SendDocumentRequest) (string, error) {
	if req != nil && strings.TrimSpace(req.Email) != "" {
		return strings.TrimSpace(req.Email), nil
	}
	if customer == nil || strings.TrimSpace(customer.Email) == "" {
		return "", ErrMissingRecipient
	}
	return strings.TrimSpace(customer.Email), nil
}

func requestMessage(req *domain.SendDocumentRequest) string {
	if req == nil {
		return ""
	}
	return strings.TrimSpace(req.Message)
}
