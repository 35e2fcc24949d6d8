package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// receivableRepository implements domain.ReceivableRepository
type receivableRepository struct {
	db *DB
}

// NewReceivableRepository creates a new receivable repository
func NewReceivableRepository(db *DB) domain.ReceivableRepository {
	return &receivableRepository{db: db}
}

// SaveSet persists the duplicates and fee invoice of a contract in one
// database transaction. The unique constraints on (contract_id, order_number)
// and on fee_invoices.contract_id make re-saving a no-op, which is what keeps
// a retried finalize from producing a second receivable set.
func (r *receivableRepository) SaveSet(ctx context.Context, set *domain.ReceivableSet) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertDuplicateQuery := `
		INSERT INTO duplicates (id, contract_id, order_number, value, due_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract_id, order_number) DO NOTHING
	`

	for _, d := range set.Duplicates {
		_, err = dbTx.ExecContext(ctx, insertDuplicateQuery,
			d.ID,
			d.ContractID,
			d.OrderNumber,
			d.Value.String(),
			d.DueDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert duplicate %s: %w", d.OrderNumber, err)
		}
	}

	insertFeeQuery := `
		INSERT INTO fee_invoices (id, contract_id, value, due_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract_id) DO NOTHING
	`

	_, err = dbTx.ExecContext(ctx, insertFeeQuery,
		set.Fee.ID,
		set.Fee.ContractID,
		set.Fee.Value.String(),
		set.Fee.DueDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fee invoice: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit receivable set: %w", err)
	}
	return nil
}

// FindByContractID retrieves the receivable set for a contract
func (r *receivableRepository) FindByContractID(ctx context.Context, contractID uuid.UUID) (*domain.ReceivableSet, error) {
	duplicatesQuery := `
		SELECT id, contract_id, order_number, value, due_date
		FROM duplicates
		WHERE contract_id = $1
		ORDER BY due_date ASC
	`

	rows, err := r.db.QueryContext(ctx, duplicatesQuery, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	defer rows.Close()

	set := &domain.ReceivableSet{ContractID: contractID}
	for rows.Next() {
		var (
			d        domain.Duplicate
			valueStr string
		)
		if err := rows.Scan(&d.ID, &d.ContractID, &d.OrderNumber, &valueStr, &d.DueDate); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate: %w", err)
		}
		value, err := decimal.NewFromString(valueStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duplicate value: %w", err)
		}
		d.Value = value
		set.Duplicates = append(set.Duplicates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicates: %w", err)
	}
	if len(set.Duplicates) == 0 {
		return nil, fmt.Errorf("receivables for contract %s: %w", contractID, domain.ErrNotFound)
	}

	feeQuery := `SELECT id, contract_id, value, due_date FROM fee_invoices WHERE contract_id = $1`

	var feeValueStr string
	err = r.db.QueryRowContext(ctx, feeQuery, contractID).Scan(
		&set.Fee.ID,
		&set.Fee.ContractID,
		&feeValueStr,
		&set.Fee.DueDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fee invoice for contract %s: %w", contractID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get fee invoice: %w", err)
	}
	feeValue, err := decimal.NewFromString(feeValueStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee value: %w", err)
	}
	set.Fee.Value = feeValue

	return set, nil
}
