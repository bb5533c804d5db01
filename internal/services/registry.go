package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/store"
)

// Registry owns the chart of accounts. Accounts are created by configuration,
// rarely renamed, and never deleted; deactivation is the only retirement path.
type Registry struct {
	txRunner db.TxRunner
	accounts AccountStore
	entries  LedgerStore
	audit    AuditStore
}

func NewRegistry(txRunner db.TxRunner, accounts AccountStore, entries LedgerStore, audit AuditStore) *Registry {
	return &Registry{txRunner: txRunner, accounts: accounts, entries: entries, audit: audit}
}

type AccountSpec struct {
	Code          string
	Name          string
	Type          models.AccountType
	NormalBalance models.BalanceSide
	ParentCode    string
	Description   string
	Actor         string
}

// maxDepth bounds parent-chain walks; anything deeper means a cycle snuck
// into the tree.
const maxDepth = 16

func (s *Registry) Create(ctx context.Context, spec AccountSpec) (models.Account, error) {
	if spec.Code == "" || spec.Name == "" || !spec.Type.Valid() {
		return models.Account{}, ErrInvalidAccountSpec
	}
	normal := spec.NormalBalance
	if normal == "" {
		normal = defaultNormalBalance(spec.Type)
	}
	if !normal.Valid() {
		return models.Account{}, ErrInvalidAccountSpec
	}
	var parentID *string
	if spec.ParentCode != "" {
		parent, err := s.accounts.GetByCode(ctx, spec.ParentCode)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrInvalidParent
		}
		if err != nil {
			return models.Account{}, err
		}
		if parent.Code == spec.Code {
			return models.Account{}, ErrInvalidParent
		}
		parentID = &parent.ID
	}
	account := models.Account{
		ID:            uuid.NewString(),
		Code:          spec.Code,
		Name:          spec.Name,
		Type:          spec.Type,
		NormalBalance: normal,
		ParentID:      parentID,
		Description:   spec.Description,
		IsActive:      true,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, store.AccountInput{
			ID:            account.ID,
			Code:          account.Code,
			Name:          account.Name,
			Type:          account.Type,
			NormalBalance: account.NormalBalance,
			ParentID:      account.ParentID,
			Description:   account.Description,
		}); err != nil {
			return err
		}
		return s.auditAccount(ctx, tx, spec.Actor, account, "insert", nil)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return models.Account{}, ErrDuplicateCode
		}
		return models.Account{}, classifyStorageErr(err)
	}
	account.FullPath, err = s.fullPath(ctx, account)
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *Registry) Get(ctx context.Context, code string) (models.Account, error) {
	account, err := s.accounts.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	account.FullPath, err = s.fullPath(ctx, account)
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *Registry) List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	return s.accounts.List(ctx, filter)
}

func (s *Registry) Rename(ctx context.Context, code, name, description, actor string) (models.Account, error) {
	var updated models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		old := account
		if err := s.accounts.UpdateName(ctx, tx, account.ID, name, description); err != nil {
			return err
		}
		account.Name = name
		account.Description = description
		updated = account
		return s.auditAccount(ctx, tx, actor, account, "update", &old)
	})
	if err != nil {
		return models.Account{}, classifyStorageErr(err)
	}
	return updated, nil
}

// Deactivate soft-retires the account. The account is deactivated even when
// it still carries a balance; the second return value flags that case so
// reporting can surface the warning.
func (s *Registry) Deactivate(ctx context.Context, code, actor string) (models.Account, bool, error) {
	var (
		deactivated models.Account
		nonZero     bool
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		old := account
		rows, err := s.accounts.Deactivate(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Already inactive; treat as a no-op.
			deactivated = account
			return nil
		}
		totals, err := s.entries.SumByAccount(ctx, account.ID, "", nil)
		if err != nil {
			return err
		}
		nonZero = !totals.Debit.Equal(totals.Credit)
		account.IsActive = false
		deactivated = account
		return s.auditAccount(ctx, tx, actor, account, "update", &old)
	})
	if err != nil {
		return models.Account{}, false, classifyStorageErr(err)
	}
	return deactivated, nonZero, nil
}

// fullPath derives the display path by walking parent links root-first.
func (s *Registry) fullPath(ctx context.Context, account models.Account) (string, error) {
	path := account.Name
	current := account
	for depth := 0; current.ParentID != nil; depth++ {
		if depth >= maxDepth {
			return "", ErrInvalidParent
		}
		parent, err := s.accounts.GetByID(ctx, *current.ParentID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidParent
		}
		if err != nil {
			return "", err
		}
		path = parent.Name + " > " + path
		current = parent
	}
	return path, nil
}

func (s *Registry) auditAccount(ctx context.Context, tx *sqlx.Tx, actor string, account models.Account, action string, old *models.Account) error {
	if actor == "" {
		actor = "system"
	}
	newJSON, err := json.Marshal(account)
	if err != nil {
		return err
	}
	newValues := string(newJSON)
	input := store.AuditInput{
		ID:        uuid.NewString(),
		TableName: "accounts",
		RecordID:  account.ID,
		Action:    action,
		NewValues: &newValues,
		Actor:     actor,
	}
	if old != nil {
		oldJSON, err := json.Marshal(*old)
		if err != nil {
			return err
		}
		oldValues := string(oldJSON)
		input.OldValues = &oldValues
	}
	return s.audit.Log(ctx, tx, input)
}

func defaultNormalBalance(t models.AccountType) models.BalanceSide {
	switch t {
	case models.TypeAsset, models.TypeExpense:
		return models.SideDebit
	default:
		return models.SideCredit
	}
}
