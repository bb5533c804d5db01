package handlers

import (
	"context"
	"time"

	"ledger/internal/config"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

type stubRegistry struct {
	createFn     func(ctx context.Context, spec services.AccountSpec) (models.Account, error)
	getFn        func(ctx context.Context, code string) (models.Account, error)
	listFn       func(ctx context.Context, filter store.AccountFilter) ([]models.Account, error)
	renameFn     func(ctx context.Context, code, name, description, actor string) (models.Account, error)
	deactivateFn func(ctx context.Context, code, actor string) (models.Account, bool, error)
}

func (s stubRegistry) Create(ctx context.Context, spec services.AccountSpec) (models.Account, error) {
	return s.createFn(ctx, spec)
}

func (s stubRegistry) Get(ctx context.Context, code string) (models.Account, error) {
	return s.getFn(ctx, code)
}

func (s stubRegistry) List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

func (s stubRegistry) Rename(ctx context.Context, code, name, description, actor string) (models.Account, error) {
	return s.renameFn(ctx, code, name, description, actor)
}

func (s stubRegistry) Deactivate(ctx context.Context, code, actor string) (models.Account, bool, error) {
	return s.deactivateFn(ctx, code, actor)
}

type stubPosting struct {
	postFn func(ctx context.Context, req services.PostRequest) (models.Transaction, bool, error)
}

func (s stubPosting) Post(ctx context.Context, req services.PostRequest) (models.Transaction, bool, error) {
	return s.postFn(ctx, req)
}

type stubBalances struct {
	getFn       func(ctx context.Context, code, userID string) (models.AccountBalance, error)
	recomputeFn func(ctx context.Context, code, userID string, asOf *time.Time) (models.AccountBalance, error)
	verifyFn    func(ctx context.Context, code, userID string) (models.AccountBalance, error)
}

func (s stubBalances) Get(ctx context.Context, code, userID string) (models.AccountBalance, error) {
	return s.getFn(ctx, code, userID)
}

func (s stubBalances) Recompute(ctx context.Context, code, userID string, asOf *time.Time) (models.AccountBalance, error) {
	return s.recomputeFn(ctx, code, userID, asOf)
}

func (s stubBalances) Verify(ctx context.Context, code, userID string) (models.AccountBalance, error) {
	return s.verifyFn(ctx, code, userID)
}

type stubReversal struct {
	reverseFn func(ctx context.Context, transactionID, reason, actor string) (models.Transaction, error)
}

func (s stubReversal) Reverse(ctx context.Context, transactionID, reason, actor string) (models.Transaction, error) {
	return s.reverseFn(ctx, transactionID, reason, actor)
}

type stubReporting struct {
	trialFn func(ctx context.Context, asOf *time.Time) (services.TrialBalance, error)
	auditFn func(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error)
}

func (s stubReporting) TrialBalance(ctx context.Context, asOf *time.Time) (services.TrialBalance, error) {
	return s.trialFn(ctx, asOf)
}

func (s stubReporting) Audit(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error) {
	if s.auditFn == nil {
		return nil, nil
	}
	return s.auditFn(ctx, filter)
}

type stubReader struct {
	getFn  func(ctx context.Context, id string) (models.Transaction, error)
	listFn func(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error)
}

func (s stubReader) Get(ctx context.Context, id string) (models.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s stubReader) List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, txType, limit, offset)
}

func newTestHandler(registry RegistryService, posting PostingService, balances BalanceService, reversal ReversalService, reporting ReportingService, reader TransactionReader) *Handler {
	cfg := config.Config{JWTSecret: "test-secret", AllowedOrigins: "*"}
	return New(cfg, registry, posting, balances, reversal, reporting, reader, websocket.NewHub())
}
