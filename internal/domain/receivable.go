package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Duplicate is one installment receivable derived from a completed contract
type Duplicate struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	OrderNumber string // "i/N", 1-based
	Value       decimal.Decimal
	DueDate     time.Time
}

// FeeInvoice is the platform service-fee receivable derived alongside duplicates
type FeeInvoice struct {
	ID         uuid.UUID
	ContractID uuid.UUID
	Value      decimal.Decimal
	DueDate    time.Time
}

// ReceivableSet is the write-once output of finalizing a contract: an ordered
// sequence of duplicates plus a single fee invoice. It is never mutated after
// creation.
type ReceivableSet struct {
	ContractID uuid.UUID
	Duplicates []Duplicate
	Fee        FeeInvoice
}

// Validate ensures the set adheres to domain rules
// CRITICAL: the sum of duplicate values must equal totalValue exactly
func (s *ReceivableSet) Validate(totalValue decimal.Decimal) error {
	if len(s.Duplicates) == 0 {
		return fmt.Errorf("%w: receivable set must have at least one duplicate", ErrValidation)
	}

	sum := decimal.Zero
	for _, d := range s.Duplicates {
		if d.Value.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: duplicate value must be positive", ErrValidation)
		}
		sum = sum.Add(d.Value)
	}
	if !sum.Equal(totalValue) {
		return fmt.Errorf("%w: duplicate values sum to %s, want %s", ErrValidation, sum, totalValue)
	}

	if s.Fee.Value.IsNegative() {
		return fmt.Errorf("%w: fee invoice value cannot be negative", ErrValidation)
	}
	return nil
}
