package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
	"github.com/byuri-coder/pecu-backend/internal/usecase/receivables"
	"github.com/byuri-coder/pecu-backend/internal/usecase/token"
)

// Service drives every lifecycle transition of a negotiation contract.
// It keeps no mutable state of its own: all serialization happens at the
// storage layer through the repository's atomic conditional updates, so
// concurrent requests from both parties (possibly handled by different
// server processes) cannot lose updates to each other.
type Service struct {
	contracts       domain.ContractRepository
	receivableStore domain.ReceivableRepository
	assets          domain.AssetGateway
	notifier        domain.Notifier
	tokens          *token.Codec
	log             *logger.Logger
	feeRate         decimal.Decimal
	now             func() time.Time
}

// NewService creates a new negotiation Service instance
func NewService(
	contracts domain.ContractRepository,
	receivableStore domain.ReceivableRepository,
	assets domain.AssetGateway,
	notifier domain.Notifier,
	tokens *token.Codec,
	log *logger.Logger,
	feeRate decimal.Decimal,
) *Service {
	if feeRate.IsZero() {
		feeRate = receivables.DefaultFeeRate
	}
	return &Service{
		contracts:       contracts,
		receivableStore: receivableStore,
		assets:          assets,
		notifier:        notifier,
		tokens:          tokens,
		log:             log.With("service", "NegotiationService"),
		feeRate:         feeRate,
		now:             time.Now,
	}
}

// AcceptTerms records one party's in-app terms acceptance.
// Idempotent per role. When both parties have accepted, the contract freezes
// (status FROZEN, step 2) exactly once; the compound transition is computed
// inside the same atomic conditional update that records the flag, so the
// two parties' simultaneous requests cannot both trigger it.
func (s *Service) AcceptTerms(ctx context.Context, contractID uuid.UUID, role domain.PartyRole) (*domain.Contract, error) {
	updated, err := s.contracts.ConditionalUpdate(ctx, contractID, func(c *domain.Contract) error {
		return c.RecordAcceptance(role, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("terms accepted",
		"contract_id", contractID, "role", role,
		"status", updated.Status, "step", updated.Step)
	return updated, nil
}

// RequestEmailConfirmation issues a signed confirmation token for one party
// and asks the notification collaborator to deliver the verification link.
// The contract must already be frozen (step >= 2). Delivery failure is logged
// but not fatal: the party can request the link again.
func (s *Service) RequestEmailConfirmation(ctx context.Context, contractID uuid.UUID, role domain.PartyRole, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.Status == domain.StatusCancelled {
		return domain.ErrContractCancelled
	}
	if contract.Step < domain.StepFrozen {
		return domain.ErrStepNotReached
	}

	signed, err := s.tokens.Sign(contract.ID, role)
	if err != nil {
		return err
	}

	if err := s.notifier.SendConfirmationLink(ctx, email, role, signed); err != nil {
		s.log.Warn("confirmation link delivery failed",
			"contract_id", contractID, "role", role, "error", err)
		return nil
	}
	s.log.Info("confirmation link sent", "contract_id", contractID, "role", role)
	return nil
}

// ConfirmEmail applies one party's emailed-link confirmation, invoked after
// token verification succeeds. Requires step >= 2 (ErrStepNotReached
// otherwise) and is idempotent per role: a duplicate click on the same link
// changes nothing. When both parties have validated, the contract advances to
// VALIDATED/step 3 exactly once.
func (s *Service) ConfirmEmail(ctx context.Context, contractID uuid.UUID, role domain.PartyRole) (*domain.Contract, error) {
	updated, err := s.contracts.ConditionalUpdate(ctx, contractID, func(c *domain.Contract) error {
		return c.RecordEmailValidation(role, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("email confirmed",
		"contract_id", contractID, "role", role,
		"status", updated.Status, "step", updated.Step)
	return updated, nil
}

// Finalize completes a validated contract: it derives the receivable set,
// marks the external asset sold and commits the COMPLETED transition.
// Requires step >= 3 (ErrPreconditionFailed otherwise).
//
// The side effects and the contract transition are treated as one retryable
// unit: receivables are persisted write-once (re-saving is a no-op) before
// the asset is flagged and the transition commits, so any dependency failure
// leaves the contract un-completed and Finalize safe to call again.
// Re-invocation after COMPLETED is a no-op returning the existing state.
func (s *Service) Finalize(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == domain.StatusCompleted {
		// Idempotent: one completed side effect per contract, ever
		return contract, nil
	}
	if contract.Status == domain.StatusCancelled {
		return nil, domain.ErrContractCancelled
	}
	if contract.Step < domain.StepValidated {
		return nil, domain.ErrPreconditionFailed
	}

	asset, err := s.assets.GetAsset(ctx, contract.AssetID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching asset %s: %v", domain.ErrDependencyFailure, contract.AssetID, err)
	}

	issuedAt := s.now()
	set, err := receivables.Generate(receivables.Input{
		ContractID:   contract.ID,
		TotalValue:   asset.Price,
		Installments: contract.Fields.Installments,
		FeeRate:      s.feeRate,
		IssuedAt:     issuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generating receivables: %v", domain.ErrDependencyFailure, err)
	}

	if err := s.receivableStore.SaveSet(ctx, set); err != nil {
		return nil, fmt.Errorf("%w: persisting receivables: %v", domain.ErrDependencyFailure, err)
	}

	if err := s.assets.MarkSold(ctx, contract.AssetID); err != nil {
		return nil, fmt.Errorf("%w: marking asset %s sold: %v", domain.ErrDependencyFailure, contract.AssetID, err)
	}

	updated, err := s.contracts.ConditionalUpdate(ctx, contractID, func(c *domain.Contract) error {
		return c.MarkCompleted(issuedAt)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("contract finalized",
		"contract_id", contractID,
		"installments", len(set.Duplicates),
		"fee_value", set.Fee.Value)
	return updated, nil
}

// Cancel moves the contract to the terminal CANCELLED status. Permitted from
// any state except COMPLETED; no further transitions are accepted afterward.
func (s *Service) Cancel(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	updated, err := s.contracts.ConditionalUpdate(ctx, contractID, func(c *domain.Contract) error {
		return c.MarkCancelled(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("contract cancelled", "contract_id", contractID)
	return updated, nil
}

// UpdateFields merges an explicit patch into the negotiated terms.
// Only permitted while terms are still open (step 0 or 1).
func (s *Service) UpdateFields(ctx context.Context, contractID uuid.UUID, patch domain.FieldsPatch) (*domain.Contract, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: patch sets no fields", domain.ErrValidation)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.contracts.ConditionalUpdate(ctx, contractID, func(c *domain.Contract) error {
		return c.ApplyFieldsPatch(patch, s.now())
	})
}

// StatusView is the polled read model of a negotiation
type StatusView struct {
	ContractID      uuid.UUID             `json:"contractId"`
	NegotiationID   string                `json:"negotiationId"`
	Status          domain.ContractStatus `json:"status"`
	Step            int                   `json:"step"`
	Acceptances     domain.PartyPair      `json:"acceptances"`
	EmailValidation domain.PartyPair      `json:"emailValidation"`
	CompletedAt     *time.Time            `json:"completedAt,omitempty"`
}

// Status returns the read view clients poll for progress
func (s *Service) Status(ctx context.Context, negotiationID string) (*StatusView, error) {
	if strings.TrimSpace(negotiationID) == "" {
		return nil, fmt.Errorf("%w: negotiationId is required", domain.ErrValidation)
	}
	contract, err := s.contracts.FindByNegotiationID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	return &StatusView{
		ContractID:      contract.ID,
		NegotiationID:   contract.NegotiationID,
		Status:          contract.Status,
		Step:            contract.Step,
		Acceptances:     contract.Acceptances,
		EmailValidation: contract.EmailValidation,
		CompletedAt:     contract.CompletedAt,
	}, nil
}
