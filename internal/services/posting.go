package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

// Posting validates and atomically commits a set of ledger entries as one
// transaction. It is the only writer of transactions and ledger_entries.
type Posting struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	transactions TransactionStore
	entries      LedgerStore
	balances     BalanceStore
	audit        AuditStore
	hub          BalanceHub
}

func NewPosting(txRunner db.TxRunner, accounts AccountStore, transactions TransactionStore, entries LedgerStore, balances BalanceStore, audit AuditStore, hub BalanceHub) *Posting {
	return &Posting{
		txRunner:     txRunner,
		accounts:     accounts,
		transactions: transactions,
		entries:      entries,
		balances:     balances,
		audit:        audit,
		hub:          hub,
	}
}

type EntryRequest struct {
	AccountCode   string
	Side          models.BalanceSide
	Amount        decimal.Decimal
	Description   string
	ReferenceType *string
	ReferenceID   *string
}

type PostRequest struct {
	Description string
	Type        string
	UserID      *string
	Currency    string
	ReferenceID *string
	Metadata    string
	Actor       string
	Entries     []EntryRequest
}

// Post commits the request as one completed transaction. The bool result is
// true when the call was resolved as an idempotent replay of an earlier
// posting with the same (type, reference id).
func (s *Posting) Post(ctx context.Context, req PostRequest) (models.Transaction, bool, error) {
	if err := validateRequest(req); err != nil {
		return models.Transaction{}, false, err
	}
	var (
		result   models.Transaction
		replayed bool
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		posted, rp, err := s.postInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result, replayed = posted, rp
		return nil
	})
	if err != nil {
		// A concurrent posting with the same reference id can beat us to the
		// partial unique index; the winner's transaction is our replay result.
		if req.ReferenceID != nil && db.IsUniqueViolation(err, "ux_transactions_reference") {
			if existing, ferr := s.replayFor(ctx, req.Type, *req.ReferenceID); ferr == nil {
				return existing, true, nil
			}
		}
		return models.Transaction{}, false, classifyStorageErr(err)
	}
	if !replayed {
		s.broadcastBalances(ctx, result.Entries)
	}
	return result, replayed, nil
}

// postInTx runs the posting pipeline inside an open transaction so the
// reversal coordinator can share the same unit of work.
func (s *Posting) postInTx(ctx context.Context, tx *sqlx.Tx, req PostRequest) (models.Transaction, bool, error) {
	accounts := make(map[string]models.Account, len(req.Entries))
	for _, entry := range req.Entries {
		if _, ok := accounts[entry.AccountCode]; ok {
			continue
		}
		account, err := s.accounts.GetForPosting(ctx, tx, entry.AccountCode)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, false, ErrUnknownAccount
		}
		if err != nil {
			return models.Transaction{}, false, err
		}
		if !account.IsActive {
			return models.Transaction{}, false, ErrInactiveAccount
		}
		accounts[entry.AccountCode] = account
	}

	debitTotal, creditTotal := sumSides(req.Entries)
	if !debitTotal.Equal(creditTotal) {
		return models.Transaction{}, false, ErrUnbalanced
	}

	if req.ReferenceID != nil {
		existing, err := s.transactions.FindByReference(ctx, tx, req.Type, *req.ReferenceID)
		if err == nil {
			existing.Entries, err = s.entries.ListByTransaction(ctx, tx, existing.ID)
			if err != nil {
				return models.Transaction{}, false, err
			}
			return existing, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return models.Transaction{}, false, err
		}
	}

	now := time.Now().UTC()
	metadata := req.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	txn := models.Transaction{
		ID:              uuid.NewString(),
		Description:     req.Description,
		Type:            req.Type,
		UserID:          req.UserID,
		TotalAmount:     debitTotal,
		Currency:        req.Currency,
		Status:          models.StatusCompleted,
		ReferenceID:     req.ReferenceID,
		TransactionDate: now,
		Metadata:        metadata,
	}
	if err := s.transactions.Create(ctx, tx, store.TransactionInput{
		ID:              txn.ID,
		Description:     txn.Description,
		Type:            txn.Type,
		UserID:          txn.UserID,
		TotalAmount:     txn.TotalAmount,
		Currency:        txn.Currency,
		Status:          txn.Status,
		ReferenceID:     txn.ReferenceID,
		TransactionDate: txn.TransactionDate,
		Metadata:        txn.Metadata,
	}); err != nil {
		return models.Transaction{}, false, err
	}

	inputs := make([]store.LedgerEntryInput, 0, len(req.Entries))
	for _, entry := range req.Entries {
		account := accounts[entry.AccountCode]
		input := store.LedgerEntryInput{
			ID:            uuid.NewString(),
			TransactionID: txn.ID,
			AccountID:     account.ID,
			Description:   entry.Description,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
			EntryDate:     now,
		}
		if entry.Side == models.SideDebit {
			input.DebitAmount = entry.Amount
		} else {
			input.CreditAmount = entry.Amount
		}
		inputs = append(inputs, input)
		txn.Entries = append(txn.Entries, models.LedgerEntry{
			ID:            input.ID,
			TransactionID: txn.ID,
			AccountID:     account.ID,
			AccountCode:   account.Code,
			DebitAmount:   input.DebitAmount,
			CreditAmount:  input.CreditAmount,
			Description:   entry.Description,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
			EntryDate:     now,
		})
	}
	if err := s.entries.InsertEntries(ctx, tx, inputs); err != nil {
		return models.Transaction{}, false, err
	}

	for _, delta := range balanceDeltas(accounts, req) {
		if err := s.balances.ApplyDelta(ctx, tx, delta); err != nil {
			return models.Transaction{}, false, err
		}
	}

	if err := s.auditPosting(ctx, tx, req.Actor, txn); err != nil {
		return models.Transaction{}, false, err
	}
	return txn, false, nil
}

// balanceDeltas folds the request entries into one cache increment per
// (account, user) key. Order between accounts does not matter: the upsert is
// commutative.
func balanceDeltas(accounts map[string]models.Account, req PostRequest) []store.BalanceDelta {
	type key struct {
		accountID string
		userID    string
	}
	nets := make(map[key]*store.BalanceDelta)
	order := make([]key, 0, len(req.Entries))
	add := func(account models.Account, userID string, debit, credit decimal.Decimal) {
		k := key{accountID: account.ID, userID: userID}
		delta, ok := nets[k]
		if !ok {
			delta = &store.BalanceDelta{AccountID: account.ID, UserID: userID}
			nets[k] = delta
			order = append(order, k)
		}
		delta.Debit = delta.Debit.Add(debit)
		delta.Credit = delta.Credit.Add(credit)
		if account.NormalBalance == models.SideDebit {
			delta.Net = delta.Net.Add(debit).Sub(credit)
		} else {
			delta.Net = delta.Net.Add(credit).Sub(debit)
		}
	}
	for _, entry := range req.Entries {
		account := accounts[entry.AccountCode]
		debit, credit := decimal.Zero, decimal.Zero
		if entry.Side == models.SideDebit {
			debit = entry.Amount
		} else {
			credit = entry.Amount
		}
		add(account, "", debit, credit)
		if req.UserID != nil && *req.UserID != "" {
			add(account, *req.UserID, debit, credit)
		}
	}
	deltas := make([]store.BalanceDelta, 0, len(order))
	for _, k := range order {
		deltas = append(deltas, *nets[k])
	}
	return deltas
}

func (s *Posting) auditPosting(ctx context.Context, tx *sqlx.Tx, actor string, txn models.Transaction) error {
	if actor == "" {
		actor = "system"
	}
	txnJSON, err := json.Marshal(txn)
	if err != nil {
		return err
	}
	txnValues := string(txnJSON)
	if err := s.audit.Log(ctx, tx, store.AuditInput{
		ID:        uuid.NewString(),
		TableName: "transactions",
		RecordID:  txn.ID,
		Action:    "insert",
		NewValues: &txnValues,
		Actor:     actor,
	}); err != nil {
		return err
	}
	for _, entry := range txn.Entries {
		entryJSON, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		entryValues := string(entryJSON)
		if err := s.audit.Log(ctx, tx, store.AuditInput{
			ID:        uuid.NewString(),
			TableName: "ledger_entries",
			RecordID:  entry.ID,
			Action:    "insert",
			NewValues: &entryValues,
			Actor:     actor,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Posting) replayFor(ctx context.Context, txType, referenceID string) (models.Transaction, error) {
	var existing models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		found, err := s.transactions.FindByReference(ctx, tx, txType, referenceID)
		if err != nil {
			return err
		}
		found.Entries, err = s.entries.ListByTransaction(ctx, tx, found.ID)
		if err != nil {
			return err
		}
		existing = found
		return nil
	})
	return existing, err
}

func (s *Posting) broadcastBalances(ctx context.Context, entries []models.LedgerEntry) {
	if s.hub == nil {
		return
	}
	seen := make(map[string]bool)
	for _, entry := range entries {
		if seen[entry.AccountID] {
			continue
		}
		seen[entry.AccountID] = true
		balance, err := s.balances.Get(ctx, entry.AccountID, "")
		if err != nil {
			continue
		}
		s.hub.BroadcastBalance(entry.AccountCode, websocket.BalanceUpdate{
			AccountCode:   entry.AccountCode,
			DebitBalance:  money.Format(balance.DebitBalance),
			CreditBalance: money.Format(balance.CreditBalance),
			NetBalance:    money.Format(balance.NetBalance),
		})
	}
}

func validateRequest(req PostRequest) error {
	if len(req.Entries) < 2 {
		return ErrTooFewEntries
	}
	if req.Currency == "" {
		return ErrCurrencyRequired
	}
	for _, entry := range req.Entries {
		if !entry.Side.Valid() {
			return ErrInvalidEntry
		}
		if _, err := money.Validate(entry.Amount); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}
	return nil
}

func sumSides(entries []EntryRequest) (decimal.Decimal, decimal.Decimal) {
	debitTotal, creditTotal := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		if entry.Side == models.SideDebit {
			debitTotal = debitTotal.Add(entry.Amount)
		} else {
			creditTotal = creditTotal.Add(entry.Amount)
		}
	}
	return debitTotal, creditTotal
}

func classifyStorageErr(err error) error {
	if errors.Is(err, db.ErrRetryLimit) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
