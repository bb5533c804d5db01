package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ledger/internal/models"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

// fakeTxRunner serializes closures with a mutex so scenario tests can post
// concurrently without a real database.
type fakeTxRunner struct {
	mu  *sync.Mutex
	err error
}

func newFakeTxRunner() fakeTxRunner {
	return fakeTxRunner{mu: &sync.Mutex{}}
}

func (f fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

// memLedger is an in-memory stand-in for the whole store layer. It mimics
// the constraints the schema enforces, including the partial unique index on
// (type, reference_id).
type memLedger struct {
	mu           sync.Mutex
	accounts     map[string]models.Account // keyed by code
	transactions map[string]models.Transaction
	entries      map[string][]models.LedgerEntry // keyed by transaction id
	balances     map[string]models.AccountBalance
	audits       []models.AuditRecord

	// One-shot failure hooks for simulating a lost insert race.
	failCreateTxn error
	missFindOnce  bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		entries:      make(map[string][]models.LedgerEntry),
		balances:     make(map[string]models.AccountBalance),
	}
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

func (m *memLedger) addAccount(code, name string, accountType models.AccountType, normal models.BalanceSide, active bool) models.Account {
	account := models.Account{
		ID:            uuid.NewString(),
		Code:          code,
		Name:          name,
		Type:          accountType,
		NormalBalance: normal,
		IsActive:      active,
		CreatedAt:     time.Now().UTC(),
	}
	m.mu.Lock()
	m.accounts[code] = account
	m.mu.Unlock()
	return account
}

func (m *memLedger) accountByID(id string) (models.Account, bool) {
	for _, account := range m.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return models.Account{}, false
}

func balanceKey(accountID, userID string) string {
	return accountID + "|" + userID
}

// AccountStore

func (m *memLedger) Create(_ context.Context, _ store.Execer, input store.AccountInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[input.Code]; ok {
		return uniqueViolation("accounts_code_key")
	}
	m.accounts[input.Code] = models.Account{
		ID:            input.ID,
		Code:          input.Code,
		Name:          input.Name,
		Type:          input.Type,
		NormalBalance: input.NormalBalance,
		ParentID:      input.ParentID,
		Description:   input.Description,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	return nil
}

func (m *memLedger) GetByCode(_ context.Context, code string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[code]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m *memLedger) GetByID(_ context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accountByID(id)
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m *memLedger) GetForPosting(ctx context.Context, _ store.Getter, code string) (models.Account, error) {
	return m.GetByCode(ctx, code)
}

func (m *memLedger) GetForUpdate(ctx context.Context, _ store.Getter, code string) (models.Account, error) {
	return m.GetByCode(ctx, code)
}

func (m *memLedger) List(_ context.Context, filter store.AccountFilter) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Account
	for _, account := range m.accounts {
		if filter.Type != "" && account.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !account.IsActive {
			continue
		}
		rows = append(rows, account)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows, nil
}

func (m *memLedger) UpdateName(_ context.Context, _ store.Execer, id, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, account := range m.accounts {
		if account.ID == id {
			account.Name = name
			account.Description = description
			m.accounts[code] = account
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memLedger) Deactivate(_ context.Context, _ store.Execer, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, account := range m.accounts {
		if account.ID == id {
			if !account.IsActive {
				return 0, nil
			}
			account.IsActive = false
			m.accounts[code] = account
			return 1, nil
		}
	}
	return 0, nil
}

// TransactionStore

func (m *memLedger) CreateTransaction(_ context.Context, _ store.Execer, input store.TransactionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateTxn != nil {
		err := m.failCreateTxn
		m.failCreateTxn = nil
		return err
	}
	if input.ReferenceID != nil {
		for _, existing := range m.transactions {
			if existing.Type == input.Type && existing.ReferenceID != nil &&
				*existing.ReferenceID == *input.ReferenceID && !existing.IsReversed {
				return uniqueViolation("ux_transactions_reference")
			}
		}
	}
	m.transactions[input.ID] = models.Transaction{
		ID:              input.ID,
		Description:     input.Description,
		Type:            input.Type,
		UserID:          input.UserID,
		TotalAmount:     input.TotalAmount,
		Currency:        input.Currency,
		Status:          input.Status,
		ReferenceID:     input.ReferenceID,
		TransactionDate: input.TransactionDate,
		Metadata:        input.Metadata,
		CreatedAt:       time.Now().UTC(),
	}
	return nil
}

func (m *memLedger) GetTransactionByID(_ context.Context, id string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return models.Transaction{}, sql.ErrNoRows
	}
	return txn, nil
}

func (m *memLedger) GetTransactionForUpdate(ctx context.Context, _ store.Getter, id string) (models.Transaction, error) {
	return m.GetTransactionByID(ctx, id)
}

func (m *memLedger) FindByReference(_ context.Context, _ store.Getter, txType, referenceID string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missFindOnce {
		m.missFindOnce = false
		return models.Transaction{}, sql.ErrNoRows
	}
	for _, txn := range m.transactions {
		if txn.Type == txType && txn.ReferenceID != nil && *txn.ReferenceID == referenceID && !txn.IsReversed {
			return txn, nil
		}
	}
	return models.Transaction{}, sql.ErrNoRows
}

func (m *memLedger) MarkTransactionReversed(_ context.Context, _ store.Execer, id, reversedBy string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok || txn.IsReversed {
		return 0, nil
	}
	txn.IsReversed = true
	txn.ReversedBy = &reversedBy
	m.transactions[id] = txn
	return 1, nil
}

func (m *memLedger) ListTransactions(_ context.Context, txType string, limit, offset int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Transaction
	for _, txn := range m.transactions {
		if txType != "" && txn.Type != txType {
			continue
		}
		rows = append(rows, txn)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// LedgerStore

func (m *memLedger) InsertEntries(_ context.Context, _ store.Execer, inputs []store.LedgerEntryInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, input := range inputs {
		account, _ := m.accountByID(input.AccountID)
		m.entries[input.TransactionID] = append(m.entries[input.TransactionID], models.LedgerEntry{
			ID:            input.ID,
			TransactionID: input.TransactionID,
			AccountID:     input.AccountID,
			AccountCode:   account.Code,
			DebitAmount:   input.DebitAmount,
			CreditAmount:  input.CreditAmount,
			Description:   input.Description,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			EntryDate:     input.EntryDate,
		})
	}
	return nil
}

func (m *memLedger) ListByTransaction(_ context.Context, _ store.Selecter, transactionID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LedgerEntry(nil), m.entries[transactionID]...), nil
}

func (m *memLedger) MarkReversed(_ context.Context, _ store.Execer, transactionID, reversedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.entries[transactionID]
	for i := range rows {
		rows[i].IsReversed = true
		by := reversedBy
		rows[i].ReversedBy = &by
	}
	return nil
}

func (m *memLedger) SumByAccount(_ context.Context, accountID, userID string, asOf *time.Time) (store.AccountTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := store.AccountTotals{Debit: decimal.Zero, Credit: decimal.Zero}
	for txnID, rows := range m.entries {
		if userID != "" {
			txn, ok := m.transactions[txnID]
			if !ok || txn.UserID == nil || *txn.UserID != userID {
				continue
			}
		}
		for _, entry := range rows {
			if entry.AccountID != accountID {
				continue
			}
			if asOf != nil && entry.EntryDate.After(*asOf) {
				continue
			}
			totals.Debit = totals.Debit.Add(entry.DebitAmount)
			totals.Credit = totals.Credit.Add(entry.CreditAmount)
		}
	}
	return totals, nil
}

// BalanceStore

func (m *memLedger) ApplyDelta(_ context.Context, _ store.Execer, delta store.BalanceDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := balanceKey(delta.AccountID, delta.UserID)
	balance, ok := m.balances[key]
	if !ok {
		balance = models.AccountBalance{
			AccountID:     delta.AccountID,
			UserID:        delta.UserID,
			DebitBalance:  decimal.Zero,
			CreditBalance: decimal.Zero,
			NetBalance:    decimal.Zero,
		}
	}
	balance.DebitBalance = balance.DebitBalance.Add(delta.Debit)
	balance.CreditBalance = balance.CreditBalance.Add(delta.Credit)
	balance.NetBalance = balance.NetBalance.Add(delta.Net)
	balance.LastUpdated = time.Now().UTC()
	m.balances[key] = balance
	return nil
}

func (m *memLedger) Get(_ context.Context, accountID, userID string) (models.AccountBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[balanceKey(accountID, userID)]
	if !ok {
		return models.AccountBalance{}, sql.ErrNoRows
	}
	return balance, nil
}

// AuditStore

func (m *memLedger) Log(_ context.Context, _ store.Execer, input store.AuditInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, models.AuditRecord{
		ID:        input.ID,
		TableName: input.TableName,
		RecordID:  input.RecordID,
		Action:    input.Action,
		OldValues: input.OldValues,
		NewValues: input.NewValues,
		Actor:     input.Actor,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memLedger) ListAudits(_ context.Context, filter store.AuditFilter) ([]models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.AuditRecord
	for _, record := range m.audits {
		if filter.TableName != "" && record.TableName != filter.TableName {
			continue
		}
		if filter.RecordID != "" && record.RecordID != filter.RecordID {
			continue
		}
		if filter.Since != nil && record.CreatedAt.Before(*filter.Since) {
			continue
		}
		rows = append(rows, record)
	}
	if filter.Offset < len(rows) {
		rows = rows[filter.Offset:]
	} else {
		rows = nil
	}
	if filter.Limit > 0 && filter.Limit < len(rows) {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

// Method name clashes (Create, List, MarkReversed) keep memLedger from
// implementing every store interface directly; these adapters delegate.

type memTransactionStore struct{ m *memLedger }

func (s memTransactionStore) Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error {
	return s.m.CreateTransaction(ctx, tx, input)
}

func (s memTransactionStore) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return s.m.GetTransactionByID(ctx, id)
}

func (s memTransactionStore) GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Transaction, error) {
	return s.m.GetTransactionForUpdate(ctx, tx, id)
}

func (s memTransactionStore) FindByReference(ctx context.Context, tx store.Getter, txType, referenceID string) (models.Transaction, error) {
	return s.m.FindByReference(ctx, tx, txType, referenceID)
}

func (s memTransactionStore) MarkReversed(ctx context.Context, tx store.Execer, id, reversedBy string) (int64, error) {
	return s.m.MarkTransactionReversed(ctx, tx, id, reversedBy)
}

func (s memTransactionStore) List(ctx context.Context, txType string, limit, offset int) ([]models.Transaction, error) {
	return s.m.ListTransactions(ctx, txType, limit, offset)
}

type memAuditStore struct{ m *memLedger }

func (s memAuditStore) Log(ctx context.Context, tx store.Execer, input store.AuditInput) error {
	return s.m.Log(ctx, tx, input)
}

func (s memAuditStore) List(ctx context.Context, filter store.AuditFilter) ([]models.AuditRecord, error) {
	return s.m.ListAudits(ctx, filter)
}

// ledgerHarness wires every service against one shared in-memory ledger.
type ledgerHarness struct {
	mem       *memLedger
	hub       *stubHub
	posting   *Posting
	reversal  *Reversal
	balances  *Balances
	registry  *Registry
	reporting *Reporting
	reader    *Transactions
}

func newHarness() *ledgerHarness {
	mem := newMemLedger()
	hub := &stubHub{}
	runner := newFakeTxRunner()
	txns := memTransactionStore{m: mem}
	audits := memAuditStore{m: mem}
	posting := NewPosting(runner, mem, txns, mem, mem, audits, hub)
	return &ledgerHarness{
		mem:       mem,
		hub:       hub,
		posting:   posting,
		reversal:  NewReversal(runner, txns, mem, audits, posting),
		balances:  NewBalances(mem, mem, mem),
		registry:  NewRegistry(runner, mem, mem, audits),
		reporting: NewReporting(mem, mem, audits),
		reader:    NewTransactions(nil, txns, mem),
	}
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.mu.Lock()
	s.calls = append(s.calls, update)
	s.mu.Unlock()
}
