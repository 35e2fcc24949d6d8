package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxInstallments bounds the agreed installment count for derived duplicates
const MaxInstallments = 36

// PartyIdentityPatch is a partial update of one party's legal identity
type PartyIdentityPatch struct {
	LegalName *string `json:"legalName,omitempty"`
	TaxID     *string `json:"taxId,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// FieldsPatch is the explicit, validated patch structure for negotiated terms.
// Every settable path is a tagged pointer field; absent fields are left
// untouched. This replaces merging arbitrary nested keys, which would let
// undefined mutations reach frozen contracts.
type FieldsPatch struct {
	Buyer             *PartyIdentityPatch `json:"buyer,omitempty"`
	Seller            *PartyIdentityPatch `json:"seller,omitempty"`
	PaymentMethod     *string             `json:"paymentMethod,omitempty"`
	Installments      *int                `json:"installments,omitempty"`
	AnnualInterestPct *decimal.Decimal    `json:"annualInterestPct,omitempty"`
}

// Validate ensures the patch adheres to domain rules
func (p FieldsPatch) Validate() error {
	if p.Installments != nil {
		if *p.Installments < 1 || *p.Installments > MaxInstallments {
			return fmt.Errorf("%w: installments must be between 1 and %d", ErrValidation, MaxInstallments)
		}
	}
	if p.AnnualInterestPct != nil && p.AnnualInterestPct.IsNegative() {
		return fmt.Errorf("%w: annual interest cannot be negative", ErrValidation)
	}
	return nil
}

// IsEmpty reports whether the patch sets nothing
func (p FieldsPatch) IsEmpty() bool {
	return p.Buyer == nil && p.Seller == nil && p.PaymentMethod == nil &&
		p.Installments == nil && p.AnnualInterestPct == nil
}

func (p FieldsPatch) applyTo(f *ContractFields) {
	if p.Buyer != nil {
		p.Buyer.applyTo(&f.Buyer)
	}
	if p.Seller != nil {
		p.Seller.applyTo(&f.Seller)
	}
	if p.PaymentMethod != nil {
		f.PaymentMethod = *p.PaymentMethod
	}
	if p.Installments != nil {
		f.Installments = *p.Installments
	}
	if p.AnnualInterestPct != nil {
		f.AnnualInterestPct = *p.AnnualInterestPct
	}
}

func (p PartyIdentityPatch) applyTo(id *PartyIdentity) {
	if p.LegalName != nil {
		id.LegalName = *p.LegalName
	}
	if p.TaxID != nil {
		id.TaxID = *p.TaxID
	}
	if p.Email != nil {
		id.Email = *p.Email
	}
}
