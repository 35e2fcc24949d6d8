package factory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
)

const (
	// How many times a losing creator re-reads before giving up. The winning
	// writer's create may not be visible immediately, so a brief
	// not-found-then-found window has to be tolerated.
	defaultMaxRereads = 5
	defaultRereadWait = 50 * time.Millisecond
)

// Factory provides get-or-create over contracts, idempotent per negotiation
// even when concurrent callers race on first contact.
type Factory struct {
	contracts  domain.ContractRepository
	assets     domain.AssetGateway
	log        *logger.Logger
	maxRereads int
	rereadWait time.Duration
	now        func() time.Time
}

// NewFactory creates a new Factory instance
func NewFactory(contracts domain.ContractRepository, assets domain.AssetGateway, log *logger.Logger) *Factory {
	return &Factory{
		contracts:  contracts,
		assets:     assets,
		log:        log.With("component", "ContractFactory"),
		maxRereads: defaultMaxRereads,
		rereadWait: defaultRereadWait,
		now:        time.Now,
	}
}

// GetOrCreate returns the contract for a negotiation, creating it on first
// contact. Creation races are resolved by the repository's unique constraint:
// the loser discards its attempted document and re-reads the winner's, retrying
// a bounded number of times before surfacing a transient error.
func (f *Factory) GetOrCreate(ctx context.Context, negotiationID, buyerID, sellerID, assetID string) (*domain.Contract, error) {
	if strings.TrimSpace(negotiationID) == "" {
		return nil, fmt.Errorf("%w: negotiationId is required", domain.ErrValidation)
	}

	// Fast path: the common case after first contact is a plain read
	existing, err := f.contracts.FindByNegotiationID(ctx, negotiationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	contract := domain.NewContract(negotiationID, buyerID, sellerID, assetID, f.now())
	f.seedSellerDefaults(ctx, contract)
	if err := contract.Validate(); err != nil {
		return nil, err
	}

	err = f.contracts.Create(ctx, contract)
	if err == nil {
		f.log.Info("contract created", "negotiation_id", negotiationID, "contract_id", contract.ID)
		return contract, nil
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, err
	}

	// A concurrent caller won the race; discard our document and adopt theirs
	f.log.Debug("lost contract creation race, re-reading", "negotiation_id", negotiationID)
	for attempt := 0; attempt < f.maxRereads; attempt++ {
		winner, err := f.contracts.FindByNegotiationID(ctx, negotiationID)
		if err == nil {
			return winner, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.rereadWait):
		}
	}
	return nil, fmt.Errorf("%w: contract for negotiation %s not visible after create conflict", domain.ErrTransientConflict, negotiationID)
}

// seedSellerDefaults fills the seller side of the negotiated terms from the
// asset collaborator when it is reachable. Failure here is not fatal: the
// seller can still fill their identity through the fields patch endpoint.
func (f *Factory) seedSellerDefaults(ctx context.Context, contract *domain.Contract) {
	if f.assets == nil {
		return
	}
	asset, err := f.assets.GetAsset(ctx, contract.AssetID)
	if err != nil {
		f.log.Warn("could not seed seller defaults from asset", "asset_id", contract.AssetID, "error", err)
		return
	}
	contract.Fields.Seller.LegalName = asset.OwnerID
	if contract.Fields.Installments == 0 {
		contract.Fields.Installments = 1
	}
}
