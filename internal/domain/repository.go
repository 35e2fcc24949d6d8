package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractMutator reads the current contract document and mutates it in place.
// It must be a pure function of its input: the repository may invoke it more
// than once while retrying a conditional update, so it must not carry side
// effects. A returned error aborts the update without retrying and is passed
// through to the caller unchanged.
type ContractMutator func(c *Contract) error

// ContractRepository defines the interface for contract persistence operations.
// ConditionalUpdate is the single concurrency-safety primitive the state
// machine depends on: the read-mutate-write cycle must never be observable as
// two separate operations to a concurrent writer.
type ContractRepository interface {
	// Create inserts a new contract
	// Returns ErrDuplicateKey if the negotiationID already has a contract
	Create(ctx context.Context, contract *Contract) error

	// FindByID retrieves a contract by its primary key
	// Returns ErrNotFound if no contract matches
	FindByID(ctx context.Context, id uuid.UUID) (*Contract, error)

	// FindByNegotiationID retrieves a contract by its external negotiation key
	// Returns ErrNotFound if no contract matches
	FindByNegotiationID(ctx context.Context, negotiationID string) (*Contract, error)

	// ConditionalUpdate atomically applies the mutator to the stored contract.
	// Storage-level races are retried internally; exhausted retries return
	// ErrTransientConflict. Errors returned by the mutator abort the update.
	ConditionalUpdate(ctx context.Context, id uuid.UUID, mutate ContractMutator) (*Contract, error)
}

// ReceivableRepository persists the write-once outputs of finalize.
// SaveSet must be idempotent per contract so that a retried finalize after a
// partial failure does not produce a second receivable set.
type ReceivableRepository interface {
	// SaveSet persists duplicates and the fee invoice for a contract.
	// Re-saving a set for the same contract is a no-op.
	SaveSet(ctx context.Context, set *ReceivableSet) error

	// FindByContractID retrieves the receivable set for a contract
	// Returns ErrNotFound if finalize has not produced one yet
	FindByContractID(ctx context.Context, contractID uuid.UUID) (*ReceivableSet, error)
}

// Asset is the boundary view of the externally owned negotiated asset
type Asset struct {
	ID      string
	Title   string
	OwnerID string
	Price   decimal.Decimal
	Sold    bool
}

// AssetGateway is the asset collaborator boundary
type AssetGateway interface {
	// GetAsset fetches price/title/owner for the negotiated asset
	GetAsset(ctx context.Context, assetID string) (*Asset, error)

	// MarkSold flags the asset as sold; invoked by finalize once the contract completes
	MarkSold(ctx context.Context, assetID string) error
}

// Notifier is the notification collaborator boundary. The engine only requests
// that a confirmation message be sent; it does not implement mail transport.
type Notifier interface {
	SendConfirmationLink(ctx context.Context, email string, role PartyRole, token string) error
}
