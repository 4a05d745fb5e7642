package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository allocates document numbers per account and kind
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// documentTable maps a document kind to the table whose rows it numbers
func documentTable(kind domain.DocumentKind) (string, error) {
	switch kind {
	case domain.DocumentKindQuotation:
		return "quotations", nil
	case domain.DocumentKindInvoice:
		return "invoices", nil
	default:
		return "", fmt.Errorf("unknown document kind: %s", kind)
	}
}

// GetNextNumber atomically retrieves and increments the sequence for an account and kind.
// The row is locked with SELECT FOR UPDATE. The first allocation seeds the sequence from
// the number of documents the account already has, so an account with n documents
// gets n+1. Numbers are never handed out twice, even after deletes.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, accountID uuid.UUID, kind domain.DocumentKind) (int, error) {
	table, err := documentTable(kind)
	if err != nil {
		return 0, err
	}

	var next int
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		lock := func() *gorm.DB {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("account_id = ? AND kind = ?", accountID, kind).
				First(&seq)
		}
		result := lock()

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			var existing int64
			if err := tx.Table(table).Where("account_id = ?", accountID).Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to count existing documents: %w", err)
			}
			seed := domain.NumberSequence{
				AccountID:  accountID,
				Kind:       kind,
				LastNumber: int(existing),
				UpdatedAt:  time.Now().UTC(),
			}
			// A concurrent first allocation may win the insert; both then share its row
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			result = lock()
		}
		if result.Error != nil {
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		}

		next = seq.LastNumber + 1
		if err := tx.Model(&seq).Updates(map[string]interface{}{
			"last_number": next,
			"updated_at":  time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update number sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
