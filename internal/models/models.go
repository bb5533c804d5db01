package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeRevenue   AccountType = "revenue"
	TypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense:
		return true
	}
	return false
}

// BalanceSide is the debit/credit axis, used both as an account's normal
// balance and as the side of an individual entry.
type BalanceSide string

const (
	SideDebit  BalanceSide = "debit"
	SideCredit BalanceSide = "credit"
)

func (s BalanceSide) Valid() bool {
	return s == SideDebit || s == SideCredit
}

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

type Account struct {
	ID            string      `db:"id" json:"id"`
	Code          string      `db:"code" json:"code"`
	Name          string      `db:"name" json:"name"`
	Type          AccountType `db:"type" json:"type"`
	NormalBalance BalanceSide `db:"normal_balance" json:"normal_balance"`
	ParentID      *string     `db:"parent_id" json:"parent_id,omitempty"`
	Description   string      `db:"description" json:"description,omitempty"`
	IsActive      bool        `db:"is_active" json:"is_active"`
	FullPath      string      `db:"-" json:"full_path,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID              string          `db:"id" json:"id"`
	Description     string          `db:"description" json:"description"`
	Type            string          `db:"type" json:"type"`
	UserID          *string         `db:"user_id" json:"user_id,omitempty"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Currency        string          `db:"currency" json:"currency"`
	Status          string          `db:"status" json:"status"`
	ReferenceID     *string         `db:"reference_id" json:"reference_id,omitempty"`
	IsReversed      bool            `db:"is_reversed" json:"is_reversed"`
	ReversedBy      *string         `db:"reversed_by" json:"reversed_by,omitempty"`
	TransactionDate time.Time       `db:"transaction_date" json:"transaction_date"`
	Metadata        string          `db:"metadata" json:"metadata"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	Entries         []LedgerEntry   `db:"-" json:"entries,omitempty"`
}

type LedgerEntry struct {
	ID            string          `db:"id" json:"id"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	AccountID     string          `db:"account_id" json:"account_id"`
	AccountCode   string          `db:"account_code" json:"account_code"`
	DebitAmount   decimal.Decimal `db:"debit_amount" json:"debit_amount"`
	CreditAmount  decimal.Decimal `db:"credit_amount" json:"credit_amount"`
	Description   string          `db:"description" json:"description,omitempty"`
	ReferenceType *string         `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string         `db:"reference_id" json:"reference_id,omitempty"`
	EntryDate     time.Time       `db:"entry_date" json:"entry_date"`
	IsReversed    bool            `db:"is_reversed" json:"is_reversed"`
	ReversedBy    *string         `db:"reversed_by" json:"reversed_by,omitempty"`
}

// AccountBalance is the cached projection of an account's ledger activity.
// UserID is empty for the account-wide row. The row is advisory: it must
// always be reproducible by replaying ledger entries for the same key.
type AccountBalance struct {
	AccountID     string          `db:"account_id" json:"account_id"`
	AccountCode   string          `db:"-" json:"account_code,omitempty"`
	UserID        string          `db:"user_id" json:"user_id,omitempty"`
	DebitBalance  decimal.Decimal `db:"debit_balance" json:"debit_balance"`
	CreditBalance decimal.Decimal `db:"credit_balance" json:"credit_balance"`
	NetBalance    decimal.Decimal `db:"net_balance" json:"net_balance"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
}

type AuditRecord struct {
	ID        string    `db:"id" json:"id"`
	TableName string    `db:"table_name" json:"table_name"`
	RecordID  string    `db:"record_id" json:"record_id"`
	Action    string    `db:"action" json:"action"`
	OldValues *string   `db:"old_values" json:"old_values,omitempty"`
	NewValues *string   `db:"new_values" json:"new_values,omitempty"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
