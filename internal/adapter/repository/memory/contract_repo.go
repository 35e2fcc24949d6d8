package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// ContractRepository is an in-memory implementation of
// domain.ContractRepository backed by a mutex-guarded map. The mutator of a
// conditional update runs entirely under the lock, giving the same atomicity
// guarantee the durable store provides. Used by tests and by local
// development runs without PostgreSQL; it is not suitable for multi-process
// deployments.
type ContractRepository struct {
	mu              sync.Mutex
	byID            map[uuid.UUID]*domain.Contract
	byNegotiationID map[string]uuid.UUID
}

// NewContractRepository creates an empty in-memory contract repository
func NewContractRepository() *ContractRepository {
	return &ContractRepository{
		byID:            make(map[uuid.UUID]*domain.Contract),
		byNegotiationID: make(map[string]uuid.UUID),
	}
}

// Create inserts a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNegotiationID[contract.NegotiationID]; exists {
		return fmt.Errorf("negotiation %s: %w", contract.NegotiationID, domain.ErrDuplicateKey)
	}
	stored := cloneContract(contract)
	r.byID[stored.ID] = stored
	r.byNegotiationID[stored.NegotiationID] = stored.ID
	return nil
}

// FindByID retrieves a contract by its primary key
func (r *ContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("id %s: %w", id, domain.ErrNotFound)
	}
	return cloneContract(stored), nil
}

// FindByNegotiationID retrieves a contract by its external negotiation key
func (r *ContractRepository) FindByNegotiationID(ctx context.Context, negotiationID string) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byNegotiationID[negotiationID]
	if !ok {
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, domain.ErrNotFound)
	}
	return cloneContract(r.byID[id]), nil
}

// ConditionalUpdate applies the mutator to a snapshot under the store lock,
// then swaps the snapshot in. No concurrent writer can interleave.
func (r *ContractRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, mutate domain.ContractMutator) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("id %s: %w", id, domain.ErrNotFound)
	}

	next := cloneContract(stored)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = stored.Version + 1
	next.UpdatedAt = time.Now()

	r.byID[id] = next
	return cloneContract(next), nil
}

// cloneContract deep-copies a contract so callers never share memory with the store
func cloneContract(c *domain.Contract) *domain.Contract {
	copied := *c
	copied.Acceptances = clonePair(c.Acceptances)
	copied.EmailValidation = clonePair(c.EmailValidation)
	if c.CompletedAt != nil {
		at := *c.CompletedAt
		copied.CompletedAt = &at
	}
	return &copied
}

func clonePair(p domain.PartyPair) domain.PartyPair {
	if p.Buyer.At != nil {
		at := *p.Buyer.At
		p.Buyer.At = &at
	}
	if p.Seller.At != nil {
		at := *p.Seller.At
		p.Seller.At = &at
	}
	return p
}
