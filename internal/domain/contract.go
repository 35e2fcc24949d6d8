package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus represents the lifecycle status of a negotiation contract
type ContractStatus string

const (
	StatusPending   ContractStatus = "PENDING"
	StatusFrozen    ContractStatus = "FROZEN"
	StatusValidated ContractStatus = "VALIDATED"
	StatusCompleted ContractStatus = "COMPLETED"
	StatusCancelled ContractStatus = "CANCELLED"
)

// Lifecycle steps. Step is finer-grained than status: it only ever increases,
// with cancellation modeled as a terminal status branch rather than a decrement.
const (
	StepOpened    = 0 // contract created, no terms accepted yet
	StepTermsOpen = 1 // one party has accepted, terms still editable
	StepFrozen    = 2 // both parties accepted, terms immutable
	StepValidated = 3 // both parties confirmed via emailed link
	StepCompleted = 4 // finalized, receivables generated
)

// PartyRole identifies which side of the negotiation an actor is on
type PartyRole string

const (
	RoleBuyer  PartyRole = "BUYER"
	RoleSeller PartyRole = "SELLER"
)

// ParseRole converts external input to a PartyRole
// Returns ErrValidation for anything that is not buyer/seller
func ParseRole(raw string) (PartyRole, error) {
	switch PartyRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	default:
		return "", fmt.Errorf("%w: role must be BUYER or SELLER", ErrValidation)
	}
}

// PartyApproval records a single party's in-app acceptance or email validation
type PartyApproval struct {
	Done bool       `json:"done"`
	At   *time.Time `json:"at,omitempty"`
}

// PartyPair holds one approval flag per negotiation side
type PartyPair struct {
	Buyer  PartyApproval `json:"buyer"`
	Seller PartyApproval `json:"seller"`
}

// Get returns the approval for the given role
func (p PartyPair) Get(role PartyRole) PartyApproval {
	if role == RoleBuyer {
		return p.Buyer
	}
	return p.Seller
}

// Set records the approval for the given role
func (p *PartyPair) Set(role PartyRole, approval PartyApproval) {
	if role == RoleBuyer {
		p.Buyer = approval
	} else {
		p.Seller = approval
	}
}

// Both reports whether both parties have approved
func (p PartyPair) Both() bool {
	return p.Buyer.Done && p.Seller.Done
}

// PartyIdentity is the legal identity of one negotiation party
type PartyIdentity struct {
	LegalName string `json:"legalName,omitempty"`
	TaxID     string `json:"taxId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// ContractFields holds the negotiated terms of the agreement
type ContractFields struct {
	Buyer             PartyIdentity   `json:"buyer"`
	Seller            PartyIdentity   `json:"seller"`
	PaymentMethod     string          `json:"paymentMethod,omitempty"`
	Installments      int             `json:"installments,omitempty"`
	AnnualInterestPct decimal.Decimal `json:"annualInterestPct"`
}

// Contract is the aggregate root for one buyer/seller negotiation over one asset.
// It is created once, mutated only through repository conditional updates, and
// never deleted (cancellation is a terminal status).
type Contract struct {
	ID              uuid.UUID
	NegotiationID   string // stable external key, unique per contract
	BuyerID         string
	SellerID        string
	AssetID         string
	Status          ContractStatus
	Step            int
	Acceptances     PartyPair
	EmailValidation PartyPair
	Fields          ContractFields
	CompletedAt     *time.Time
	Version         int64 // optimistic concurrency token, managed by the repository
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewContract builds a fresh contract at step 0 / PENDING
func NewContract(negotiationID, buyerID, sellerID, assetID string, now time.Time) *Contract {
	return &Contract{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		AssetID:       assetID,
		Status:        StatusPending,
		Step:          StepOpened,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate ensures the contract adheres to domain rules
// Returns an error if validation fails
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.NegotiationID) == "" {
		return fmt.Errorf("%w: negotiationId is required", ErrValidation)
	}
	if strings.TrimSpace(c.BuyerID) == "" {
		return fmt.Errorf("%w: buyerId is required", ErrValidation)
	}
	if strings.TrimSpace(c.SellerID) == "" {
		return fmt.Errorf("%w: sellerId is required", ErrValidation)
	}
	if strings.TrimSpace(c.AssetID) == "" {
		return fmt.Errorf("%w: assetId is required", ErrValidation)
	}
	if c.Step < StepOpened || c.Step > StepCompleted {
		return fmt.Errorf("%w: step out of range", ErrValidation)
	}
	if c.Status == StatusCompleted && (c.Step != StepCompleted || c.CompletedAt == nil) {
		return fmt.Errorf("%w: completed contract must be at step 4 with completedAt set", ErrValidation)
	}
	return nil
}

// RecordAcceptance applies one party's in-app terms acceptance.
// Idempotent per role: a role that already accepted is a no-op.
// When the second role accepts, the contract freezes (status FROZEN, step 2)
// exactly once; the compound transition is decided here so that it happens
// inside the same atomic conditional update that records the flag.
func (c *Contract) RecordAcceptance(role PartyRole, now time.Time) error {
	if c.Status == StatusCancelled {
		return ErrContractCancelled
	}
	if c.Acceptances.Get(role).Done {
		// Re-invocation by a role that already accepted: no-op, not an error
		return nil
	}
	if c.Step > StepTermsOpen {
		// Re-acceptance after freeze requires an amendment path, which does not exist
		return ErrPreconditionFailed
	}

	at := now
	c.Acceptances.Set(role, PartyApproval{Done: true, At: &at})

	if c.Acceptances.Both() {
		if c.Status == StatusPending {
			c.Status = StatusFrozen
			c.Step = StepFrozen
		}
	} else if c.Step == StepOpened {
		c.Step = StepTermsOpen
	}
	c.UpdatedAt = now
	return nil
}

// RecordEmailValidation applies one party's emailed-link confirmation.
// Only reachable once the contract is frozen (step >= 2); idempotent per role.
// When the second role validates, the contract advances to VALIDATED/step 3
// exactly once — the "both flags true AND status not already advanced" check
// runs inside the same atomic conditional update as the flag write.
func (c *Contract) RecordEmailValidation(role PartyRole, now time.Time) error {
	if c.Status == StatusCancelled {
		return ErrContractCancelled
	}
	if c.EmailValidation.Get(role).Done {
		return nil
	}
	if c.Step < StepFrozen {
		return ErrStepNotReached
	}

	at := now
	c.EmailValidation.Set(role, PartyApproval{Done: true, At: &at})

	if c.EmailValidation.Both() && c.Status == StatusFrozen {
		c.Status = StatusValidated
		c.Step = StepValidated
	}
	c.UpdatedAt = now
	return nil
}

// MarkCompleted commits the finalize transition.
// Idempotent: an already completed contract is a no-op.
func (c *Contract) MarkCompleted(now time.Time) error {
	if c.Status == StatusCompleted {
		return nil
	}
	if c.Status == StatusCancelled {
		return ErrContractCancelled
	}
	if c.Step < StepValidated {
		return ErrPreconditionFailed
	}

	at := now
	c.Status = StatusCompleted
	c.Step = StepCompleted
	c.CompletedAt = &at
	c.UpdatedAt = now
	return nil
}

// MarkCancelled moves the contract to the terminal CANCELLED status.
// Permitted from any state except COMPLETED; cancelling twice is a no-op.
func (c *Contract) MarkCancelled(now time.Time) error {
	if c.Status == StatusCancelled {
		return nil
	}
	if c.Status == StatusCompleted {
		return fmt.Errorf("%w: completed contract cannot be cancelled", ErrPreconditionFailed)
	}
	c.Status = StatusCancelled
	c.UpdatedAt = now
	return nil
}

// ApplyFieldsPatch merges an explicit patch into the negotiated terms.
// Only permitted while terms are still open (step 0 or 1).
func (c *Contract) ApplyFieldsPatch(patch FieldsPatch, now time.Time) error {
	if c.Status == StatusCancelled {
		return ErrContractCancelled
	}
	if c.Step > StepTermsOpen {
		return fmt.Errorf("%w: terms are frozen", ErrPreconditionFailed)
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	patch.applyTo(&c.Fields)
	c.UpdatedAt = now
	return nil
}
