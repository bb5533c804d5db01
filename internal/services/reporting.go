package services

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/store"
)

// Reporting recomputes the trial balance from the ledger itself, never the
// cache, and serves the append-only audit trail.
type Reporting struct {
	accounts AccountStore
	entries  LedgerStore
	audit    AuditStore
}

func NewReporting(accounts AccountStore, entries LedgerStore, audit AuditStore) *Reporting {
	return &Reporting{accounts: accounts, entries: entries, audit: audit}
}

type TrialBalanceRow struct {
	AccountCode  string             `json:"account_code"`
	AccountName  string             `json:"account_name"`
	AccountType  models.AccountType `json:"account_type"`
	Debit        decimal.Decimal    `json:"debit"`
	Credit       decimal.Decimal    `json:"credit"`
	InactiveWarn bool               `json:"inactive_with_balance,omitempty"`
}

type TrialBalance struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// TrialBalance recomputes every account as of the given time. A global
// debit/credit mismatch is a hard error: it means the posting invariant was
// broken and must page an operator, not be worked around.
func (s *Reporting) TrialBalance(ctx context.Context, asOf *time.Time) (TrialBalance, error) {
	accounts, err := s.accounts.List(ctx, store.AccountFilter{})
	if err != nil {
		return TrialBalance{}, err
	}
	report := TrialBalance{
		AsOf:        time.Now().UTC(),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	if asOf != nil {
		report.AsOf = asOf.UTC()
	}
	for _, account := range accounts {
		totals, err := s.entries.SumByAccount(ctx, account.ID, "", asOf)
		if err != nil {
			return TrialBalance{}, err
		}
		hasBalance := !totals.Debit.Equal(totals.Credit)
		if !account.IsActive && totals.Debit.IsZero() && totals.Credit.IsZero() {
			continue
		}
		report.Rows = append(report.Rows, TrialBalanceRow{
			AccountCode:  account.Code,
			AccountName:  account.Name,
			AccountType:  account.Type,
			Debit:        totals.Debit,
			Credit:       totals.Credit,
			InactiveWarn: !account.IsActive && hasBalance,
		})
		report.TotalDebit = report.TotalDebit.Add(totals.Debit)
		report.TotalCredit = report.TotalCredit.Add(totals.Credit)
	}
	if !report.TotalDebit.Equal(report.TotalCredit) {
		log.Printf("integrity: trial balance out of balance debit=%s credit=%s",
			report.TotalDebit, report.TotalCredit)
		return report, ErrLedgerOutOfBalance
	}
	return report, nil
}

func (s *Reporting) Audit(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.audit.List(ctx, filter)
}
