package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID              string
	Description     string
	Type            string
	UserID          *string
	TotalAmount     decimal.Decimal
	Currency        string
	Status          string
	ReferenceID     *string
	TransactionDate time.Time
	Metadata        string
}

const transactionColumns = `id, description, type, user_id, total_amount, currency, status,
	       reference_id, is_reversed, reversed_by, transaction_date, metadata, created_at`

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO transactions (id, description, type, user_id, total_amount, currency, status, reference_id, transaction_date, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Description, input.Type, input.UserID, input.TotalAmount, input.Currency,
		input.Status, input.ReferenceID, input.TransactionDate, input.Metadata,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id)
	return row, err
}

func (s *TransactionStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id)
	return row, err
}

// FindByReference resolves the idempotency lookup: the most recent non-reversed
// transaction carrying the same (type, reference_id) pair.
func (s *TransactionStore) FindByReference(ctx context.Context, tx Getter, txType, referenceID string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE type = $1 AND reference_id = $2 AND is_reversed = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, txType, referenceID)
	return row, err
}

// MarkReversed links the original transaction to its reversal. The conditional
// WHERE doubles as the concurrency guard: zero rows means another reversal won.
func (s *TransactionStore) MarkReversed(ctx context.Context, tx Execer, id, reversedBy string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET is_reversed = TRUE, reversed_by = $1
		WHERE id = $2 AND is_reversed = FALSE
	`, reversedBy, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TransactionStore) List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE 1=1
	`
	args := []any{}
	param := 1
	if txType != "" {
		query += ` AND type = $` + itoa(param)
		args = append(args, txType)
		param++
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(param) + ` OFFSET $` + itoa(param+1)
	args = append(args, limit, offset)
	var rows []models.Transaction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}
