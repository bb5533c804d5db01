package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"ledger/internal/models"
)

// Balances reads the cached projection and recomputes the authoritative value
// from the ledger. The cache is written only inside the posting unit of work;
// this service never mutates it.
type Balances struct {
	accounts AccountStore
	entries  LedgerStore
	cache    BalanceStore
}

func NewBalances(accounts AccountStore, entries LedgerStore, cache BalanceStore) *Balances {
	return &Balances{accounts: accounts, entries: entries, cache: cache}
}

// Get returns the cached balance for (account code, optional user). A missing
// cache row means no entries have touched the key yet and reads as zero.
func (s *Balances) Get(ctx context.Context, code, userID string) (models.AccountBalance, error) {
	account, err := s.resolve(ctx, code)
	if err != nil {
		return models.AccountBalance{}, err
	}
	balance, err := s.cache.Get(ctx, account.ID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return zeroBalance(account, userID), nil
	}
	if err != nil {
		return models.AccountBalance{}, err
	}
	balance.AccountCode = account.Code
	return balance, nil
}

// Recompute ignores the cache and aggregates ledger entries directly. It is
// the reconciliation path and must always agree with Get absent a bug.
func (s *Balances) Recompute(ctx context.Context, code, userID string, asOf *time.Time) (models.AccountBalance, error) {
	account, err := s.resolve(ctx, code)
	if err != nil {
		return models.AccountBalance{}, err
	}
	totals, err := s.entries.SumByAccount(ctx, account.ID, userID, asOf)
	if err != nil {
		return models.AccountBalance{}, err
	}
	balance := models.AccountBalance{
		AccountID:     account.ID,
		AccountCode:   account.Code,
		UserID:        userID,
		DebitBalance:  totals.Debit,
		CreditBalance: totals.Credit,
	}
	if account.NormalBalance == models.SideDebit {
		balance.NetBalance = totals.Debit.Sub(totals.Credit)
	} else {
		balance.NetBalance = totals.Credit.Sub(totals.Debit)
	}
	return balance, nil
}

// Verify compares the cache against a fresh recomputation. Drift is an
// integrity failure, never silently corrected.
func (s *Balances) Verify(ctx context.Context, code, userID string) (models.AccountBalance, error) {
	cached, err := s.Get(ctx, code, userID)
	if err != nil {
		return models.AccountBalance{}, err
	}
	recomputed, err := s.Recompute(ctx, code, userID, nil)
	if err != nil {
		return models.AccountBalance{}, err
	}
	if !cached.DebitBalance.Equal(recomputed.DebitBalance) ||
		!cached.CreditBalance.Equal(recomputed.CreditBalance) ||
		!cached.NetBalance.Equal(recomputed.NetBalance) {
		log.Printf("integrity: balance drift on account=%s user=%q cache=%s/%s/%s ledger=%s/%s/%s",
			code, userID,
			cached.DebitBalance, cached.CreditBalance, cached.NetBalance,
			recomputed.DebitBalance, recomputed.CreditBalance, recomputed.NetBalance)
		return models.AccountBalance{}, ErrBalanceDrift
	}
	return recomputed, nil
}

func (s *Balances) resolve(ctx context.Context, code string) (models.Account, error) {
	account, err := s.accounts.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

func zeroBalance(account models.Account, userID string) models.AccountBalance {
	return models.AccountBalance{
		AccountID:   account.ID,
		AccountCode: account.Code,
		UserID:      userID,
	}
}
