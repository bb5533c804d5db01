package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID            string
	TransactionID string
	AccountID     string
	DebitAmount   decimal.Decimal
	CreditAmount  decimal.Decimal
	Description   string
	ReferenceType *string
	ReferenceID   *string
	EntryDate     time.Time
}

func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, account_id, debit_amount, credit_amount, description, reference_type, reference_id, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.ID, entry.TransactionID, entry.AccountID, entry.DebitAmount, entry.CreditAmount,
			entry.Description, entry.ReferenceType, entry.ReferenceID, entry.EntryDate,
		); err != nil {
			return err
		}
	}
	return nil
}

const entryColumns = `e.id, e.transaction_id, e.account_id, a.code AS account_code,
	       e.debit_amount, e.credit_amount, e.description, e.reference_type, e.reference_id,
	       e.entry_date, e.is_reversed, e.reversed_by`

func (s *LedgerStore) ListByTransaction(ctx context.Context, q Selecter, transactionID string) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := q.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+`
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.transaction_id = $1
		ORDER BY e.entry_date, e.id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	var rows []models.LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+entryColumns+`
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.account_id = $1
		ORDER BY e.entry_date DESC, e.id
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkReversed flags the original entries when their transaction is reversed.
// The rows themselves are never edited beyond this link.
func (s *LedgerStore) MarkReversed(ctx context.Context, tx Execer, transactionID, reversedBy string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ledger_entries
		SET is_reversed = TRUE, reversed_by = $1
		WHERE transaction_id = $2
	`, reversedBy, transactionID)
	return err
}

type AccountTotals struct {
	Debit  decimal.Decimal `db:"debit_total"`
	Credit decimal.Decimal `db:"credit_total"`
}

// SumByAccount aggregates directly over ledger entries, ignoring the balance
// cache. userID narrows to entries whose transaction belongs to that user;
// asOf cuts off by entry date.
func (s *LedgerStore) SumByAccount(ctx context.Context, accountID, userID string, asOf *time.Time) (AccountTotals, error) {
	query := `
		SELECT COALESCE(SUM(e.debit_amount), 0) AS debit_total,
		       COALESCE(SUM(e.credit_amount), 0) AS credit_total
		FROM ledger_entries e
	`
	args := []any{accountID}
	param := 2
	if userID != "" {
		query += `
		JOIN transactions t ON t.id = e.transaction_id`
	}
	query += `
		WHERE e.account_id = $1`
	if userID != "" {
		query += ` AND t.user_id = $` + itoa(param)
		args = append(args, userID)
		param++
	}
	if asOf != nil {
		query += ` AND e.entry_date <= $` + itoa(param)
		args = append(args, *asOf)
	}
	var totals AccountTotals
	err := s.db.GetContext(ctx, &totals, query, args...)
	return totals, err
}
