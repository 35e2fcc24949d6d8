package receivables

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// FeeDueDays is the fixed short due window of the service-fee invoice
const FeeDueDays = 7

// DefaultFeeRate is the platform service-fee rate applied when none is configured
var DefaultFeeRate = decimal.NewFromFloat(0.05)

// Input carries everything the generator needs to derive receivables.
// TotalValue is the asset's agreed total price; Installments defaults to 1.
type Input struct {
	ContractID   uuid.UUID
	TotalValue   decimal.Decimal
	Installments int
	FeeRate      decimal.Decimal
	IssuedAt     time.Time
}

// Generate derives the receivable set for a completed-eligible contract:
// an ordered sequence of installment duplicates plus a single fee invoice.
// Logic:
//  1. installmentValue = totalValue / N, rounded down to currency precision
//  2. The rounding residual is assigned to the FIRST installment, so the sum
//     of duplicate values equals totalValue exactly
//  3. Due dates increment monthly from the issue date (first due one month out)
//  4. Fee invoice = totalValue * feeRate, due in FeeDueDays days
//
// This is a pure derivation: it performs no state-machine transitions and
// writes nothing itself.
func Generate(in Input) (*domain.ReceivableSet, error) {
	if in.TotalValue.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: total value must be positive", domain.ErrValidation)
	}

	n := in.Installments
	if n == 0 {
		n = 1
	}
	if n < 1 || n > domain.MaxInstallments {
		return nil, fmt.Errorf("%w: installments must be between 1 and %d", domain.ErrValidation, domain.MaxInstallments)
	}

	feeRate := in.FeeRate
	if feeRate.IsZero() {
		feeRate = DefaultFeeRate
	}
	if feeRate.IsNegative() {
		return nil, fmt.Errorf("%w: fee rate cannot be negative", domain.ErrValidation)
	}

	total := in.TotalValue.Round(2)

	// Base installment, rounded down so the residual is always non-negative
	base := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	residual := total.Sub(base.Mul(decimal.NewFromInt(int64(n))))

	duplicates := make([]domain.Duplicate, 0, n)
	for i := 1; i <= n; i++ {
		value := base
		if i == 1 {
			// Residual cents ride on the first installment
			value = base.Add(residual)
		}
		duplicates = append(duplicates, domain.Duplicate{
			ID:          uuid.New(),
			ContractID:  in.ContractID,
			OrderNumber: fmt.Sprintf("%d/%d", i, n),
			Value:       value,
			DueDate:     in.IssuedAt.AddDate(0, i, 0),
		})
	}

	set := &domain.ReceivableSet{
		ContractID: in.ContractID,
		Duplicates: duplicates,
		Fee: domain.FeeInvoice{
			ID:         uuid.New(),
			ContractID: in.ContractID,
			Value:      total.Mul(feeRate).Round(2),
			DueDate:    in.IssuedAt.AddDate(0, 0, FeeDueDays),
		},
	}

	// Safety check: duplicate values must sum to the total exactly
	if err := set.Validate(total); err != nil {
		return nil, err
	}

	return set, nil
}
