package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/repository"
)

// NumberSequenceService hands out document numbers per account and kind.
//
// Format: {PREFIX}-{SEQUENCE}
// Example: QUO-001, INV-042
//
// Prefixes come from the account's invoice settings (quotationPrefix and prefix).
type NumberSequenceService struct {
	repo     *repository.NumberSequenceRepository
	settings *SettingsService
	logger   *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	settings *SettingsService,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:     repo,
		settings: settings,
		logger:   logger,
	}
}

// Next allocates the next number for kind. Allocated numbers are never reused,
// even when the insert that asked for them fails afterwards.
func (s *NumberSequenceService) Next(ctx context.Context, kind domain.DocumentKind) (string, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return "", err
	}
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: unknown document kind %q", ErrInvalidInput, kind)
	}

	prefs, err := s.settings.Invoice(ctx)
	if err != nil {
		return "", err
	}
	prefix := documentPrefix(kind, prefs)

	nextSeq, err := s.repo.GetNextNumber(ctx, accountID, kind)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("account_id", accountID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", kind, err)
	}

	// Format: PREFIX-NNN (zero-padded to 3 digits)
	number := fmt.Sprintf("%s-%03d", prefix, nextSeq)

	s.logger.Debug("generated number",
		zap.String("account_id", accountID.String()),
		zap.String("kind", string(kind)),
		zap.String("number", number))

	return number, nil
}

func documentPrefix(kind domain.DocumentKind, prefs domain.InvoiceSettings) string {
	prefix := strings.TrimSpace(prefs.Prefix)
	fallback := domain.DefaultInvoiceSettings().Prefix
	if kind == domain.DocumentKindQuotation {
		prefix = strings.TrimSpace(prefs.QuotationPrefix)
		fallback = domain.DefaultInvoiceSettings().QuotationPrefix
	}
	if prefix == "" {
		return fallback
	}
	return prefix
}
