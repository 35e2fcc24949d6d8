package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// ReceivableRepository is an in-memory implementation of
// domain.ReceivableRepository. Sets are write-once per contract: re-saving an
// existing set is a no-op, matching the durable store's conflict handling.
type ReceivableRepository struct {
	mu   sync.Mutex
	sets map[uuid.UUID]*domain.ReceivableSet
}

// NewReceivableRepository creates an empty in-memory receivable repository
func NewReceivableRepository() *ReceivableRepository {
	return &ReceivableRepository{sets: make(map[uuid.UUID]*domain.ReceivableSet)}
}

// SaveSet persists the receivable set for a contract, once
func (r *ReceivableRepository) SaveSet(ctx context.Context, set *domain.ReceivableSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sets[set.ContractID]; exists {
		return nil
	}
	copied := *set
	copied.Duplicates = append([]domain.Duplicate(nil), set.Duplicates...)
	r.sets[set.ContractID] = &copied
	return nil
}

// FindByContractID retrieves the receivable set for a contract
func (r *ReceivableRepository) FindByContractID(ctx context.Context, contractID uuid.UUID) (*domain.ReceivableSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[contractID]
	if !ok {
		return nil, fmt.Errorf("receivables for contract %s: %w", contractID, domain.ErrNotFound)
	}
	copied := *set
	copied.Duplicates = append([]domain.Duplicate(nil), set.Duplicates...)
	return &copied, nil
}
