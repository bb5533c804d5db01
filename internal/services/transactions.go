package services

import (
	"context"
	"database/sql"
	"errors"

	"ledger/internal/models"
	"ledger/internal/store"
)

// Transactions serves read-only transaction lookups with their entries.
type Transactions struct {
	db           store.Selecter
	transactions TransactionStore
	entries      LedgerStore
}

func NewTransactions(db store.Selecter, transactions TransactionStore, entries LedgerStore) *Transactions {
	return &Transactions{db: db, transactions: transactions, entries: entries}
}

func (s *Transactions) Get(ctx context.Context, id string) (models.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	txn.Entries, err = s.entries.ListByTransaction(ctx, s.db, txn.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	return txn, nil
}

func (s *Transactions) List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error) {
	return s.transactions.List(ctx, txType, limit, offset)
}
