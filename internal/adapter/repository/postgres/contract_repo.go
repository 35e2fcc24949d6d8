package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// How many read-mutate-write cycles a conditional update attempts before
// reporting a transient conflict. Each retry re-reads the current document,
// so a loser of a version race immediately observes the winner's write.
const maxUpdateAttempts = 5

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// contractRepository implements domain.ContractRepository
type contractRepository struct {
	db *DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *DB) domain.ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `id, negotiation_id, buyer_id, seller_id, asset_id, status, step,
	acceptances, email_validation, fields, completed_at, version, created_at, updated_at`

// Create inserts a new contract
// The unique index on negotiation_id resolves concurrent first-contact races:
// exactly one creator wins, every other one gets ErrDuplicateKey.
func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	acceptances, emailValidation, fields, err := marshalDocuments(contract)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contracts (` + contractColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		contract.ID,
		contract.NegotiationID,
		contract.BuyerID,
		contract.SellerID,
		contract.AssetID,
		string(contract.Status),
		contract.Step,
		acceptances,
		emailValidation,
		fields,
		contract.CompletedAt,
		contract.Version,
		contract.CreatedAt,
		contract.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("negotiation %s: %w", contract.NegotiationID, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// FindByID retrieves a contract by its primary key
func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("id %s", id))
}

// FindByNegotiationID retrieves a contract by its external negotiation key
func (r *contractRepository) FindByNegotiationID(ctx context.Context, negotiationID string) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE negotiation_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, negotiationID), fmt.Sprintf("negotiation %s", negotiationID))
}

// ConditionalUpdate atomically applies the mutator to the stored contract.
// Implementation: optimistic concurrency over the version column. The current
// document is read, the mutator applied to the snapshot, and the UPDATE is
// guarded by WHERE version = <read version>; a concurrent writer makes the
// guard miss, in which case the whole cycle retries against the fresh
// document. A mutator error aborts immediately without retrying.
func (r *contractRepository) ConditionalUpdate(ctx context.Context, id uuid.UUID, mutate domain.ContractMutator) (*domain.Contract, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		contract, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		readVersion := contract.Version

		if err := mutate(contract); err != nil {
			return nil, err
		}

		acceptances, emailValidation, fields, err := marshalDocuments(contract)
		if err != nil {
			return nil, err
		}

		query := `
			UPDATE contracts
			SET status = $1, step = $2, acceptances = $3, email_validation = $4,
				fields = $5, completed_at = $6, version = version + 1, updated_at = $7
			WHERE id = $8 AND version = $9
		`

		now := time.Now()
		res, err := r.db.ExecContext(ctx, query,
			string(contract.Status),
			contract.Step,
			acceptances,
			emailValidation,
			fields,
			contract.CompletedAt,
			now,
			id,
			readVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update contract: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 1 {
			contract.Version = readVersion + 1
			contract.UpdatedAt = now
			return contract, nil
		}
		// Version guard missed: a concurrent writer got there first, retry
	}
	return nil, fmt.Errorf("contract %s: %w", id, domain.ErrTransientConflict)
}

// scanOne maps a single contract row, translating sql.ErrNoRows to ErrNotFound
func (r *contractRepository) scanOne(row *sql.Row, what string) (*domain.Contract, error) {
	var (
		contract        domain.Contract
		status          string
		acceptances     []byte
		emailValidation []byte
		fields          []byte
		completedAt     sql.NullTime
	)

	err := row.Scan(
		&contract.ID,
		&contract.NegotiationID,
		&contract.BuyerID,
		&contract.SellerID,
		&contract.AssetID,
		&status,
		&contract.Step,
		&acceptances,
		&emailValidation,
		&fields,
		&completedAt,
		&contract.Version,
		&contract.CreatedAt,
		&contract.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	contract.Status = domain.ContractStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		contract.CompletedAt = &t
	}
	if err := json.Unmarshal(acceptances, &contract.Acceptances); err != nil {
		return nil, fmt.Errorf("failed to parse acceptances: %w", err)
	}
	if err := json.Unmarshal(emailValidation, &contract.EmailValidation); err != nil {
		return nil, fmt.Errorf("failed to parse email_validation: %w", err)
	}
	if err := json.Unmarshal(fields, &contract.Fields); err != nil {
		return nil, fmt.Errorf("failed to parse fields: %w", err)
	}
	return &contract, nil
}

// marshalDocuments serializes the jsonb columns of a contract row
func marshalDocuments(contract *domain.Contract) (acceptances, emailValidation, fields []byte, err error) {
	if acceptances, err = json.Marshal(contract.Acceptances); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to serialize acceptances: %w", err)
	}
	if emailValidation, err = json.Marshal(contract.EmailValidation); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to serialize email_validation: %w", err)
	}
	if fields, err = json.Marshal(contract.Fields); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to serialize fields: %w", err)
	}
	return acceptances, emailValidation, fields, nil
}
