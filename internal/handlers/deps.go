package handlers

import (
	"context"
	"time"

	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
)

type RegistryService interface {
	Create(ctx context.Context, spec services.AccountSpec) (models.Account, error)
	Get(ctx context.Context, code string) (models.Account, error)
	List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error)
	Rename(ctx context.Context, code, name, description, actor string) (models.Account, error)
	Deactivate(ctx context.Context, code, actor string) (models.Account, bool, error)
}

type PostingService interface {
	Post(ctx context.Context, req services.PostRequest) (models.Transaction, bool, error)
}

type BalanceService interface {
	Get(ctx context.Context, code, userID string) (models.AccountBalance, error)
	Recompute(ctx context.Context, code, userID string, asOf *time.Time) (models.AccountBalance, error)
	Verify(ctx context.Context, code, userID string) (models.AccountBalance, error)
}

type ReversalService interface {
	Reverse(ctx context.Context, transactionID, reason, actor string) (models.Transaction, error)
}

type ReportingService interface {
	TrialBalance(ctx context.Context, asOf *time.Time) (services.TrialBalance, error)
	Audit(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error)
}

// TransactionReader serves plain reads; only the posting engine writes.
type TransactionReader interface {
	Get(ctx context.Context, id string) (models.Transaction, error)
	List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error)
}
