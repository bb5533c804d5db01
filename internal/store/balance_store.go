package store

import (
	"context"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

// BalanceStore owns the account_balances projection. Nothing outside the
// posting path may write these rows.
type BalanceStore struct {
	db DB
}

func NewBalanceStore(db DB) *BalanceStore {
	return &BalanceStore{db: db}
}

type BalanceDelta struct {
	AccountID string
	UserID    string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Net       decimal.Decimal
}

// ApplyDelta increments the cached balance with a conflict-free upsert so
// concurrent postings against the same account never read-modify-write.
func (s *BalanceStore) ApplyDelta(ctx context.Context, tx Execer, delta BalanceDelta) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, user_id, debit_balance, credit_balance, net_balance, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (account_id, user_id) DO UPDATE
		SET debit_balance = account_balances.debit_balance + EXCLUDED.debit_balance,
		    credit_balance = account_balances.credit_balance + EXCLUDED.credit_balance,
		    net_balance = account_balances.net_balance + EXCLUDED.net_balance,
		    last_updated = NOW()
	`, delta.AccountID, delta.UserID, delta.Debit, delta.Credit, delta.Net)
	return err
}

func (s *BalanceStore) Get(ctx context.Context, accountID, userID string) (models.AccountBalance, error) {
	var row models.AccountBalance
	err := s.db.GetContext(ctx, &row, `
		SELECT account_id, user_id, debit_balance, credit_balance, net_balance, last_updated
		FROM account_balances
		WHERE account_id = $1 AND user_id = $2
	`, accountID, userID)
	return row, err
}
