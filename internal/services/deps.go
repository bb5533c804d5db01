package services

import (
	"context"
	"time"

	"ledger/internal/models"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, input store.AccountInput) error
	GetByCode(ctx context.Context, code string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetForPosting(ctx context.Context, tx store.Getter, code string) (models.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, code string) (models.Account, error)
	List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error)
	UpdateName(ctx context.Context, tx store.Execer, id, name, description string) error
	Deactivate(ctx context.Context, tx store.Execer, id string) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Transaction, error)
	FindByReference(ctx context.Context, tx store.Getter, txType, referenceID string) (models.Transaction, error)
	MarkReversed(ctx context.Context, tx store.Execer, id, reversedBy string) (int64, error)
	List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
	ListByTransaction(ctx context.Context, q store.Selecter, transactionID string) ([]models.LedgerEntry, error)
	MarkReversed(ctx context.Context, tx store.Execer, transactionID, reversedBy string) error
	SumByAccount(ctx context.Context, accountID, userID string, asOf *time.Time) (store.AccountTotals, error)
}

type BalanceStore interface {
	ApplyDelta(ctx context.Context, tx store.Execer, delta store.BalanceDelta) error
	Get(ctx context.Context, accountID, userID string) (models.AccountBalance, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, input store.AuditInput) error
	List(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error)
}

type BalanceHub interface {
	BroadcastBalance(accountCode string, update websocket.BalanceUpdate)
}
