package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/store"
)

// Reversal cancels the economic effect of a completed transaction by posting
// a mirrored transaction. History is never edited: the original rows only
// gain a reversal link.
type Reversal struct {
	txRunner     db.TxRunner
	transactions TransactionStore
	entries      LedgerStore
	audit        AuditStore
	posting      *Posting
}

func NewReversal(txRunner db.TxRunner, transactions TransactionStore, entries LedgerStore, audit AuditStore, posting *Posting) *Reversal {
	return &Reversal{
		txRunner:     txRunner,
		transactions: transactions,
		entries:      entries,
		audit:        audit,
		posting:      posting,
	}
}

const reversalType = "reversal"

// Reverse posts the mirrored transaction and marks the original as reversed
// in one unit of work. Either both land or neither does.
func (s *Reversal) Reverse(ctx context.Context, transactionID, reason, actor string) (models.Transaction, error) {
	if actor == "" {
		actor = "system"
	}
	var reversing models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		original, err := s.transactions.GetForUpdate(ctx, tx, transactionID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransactionNotFound
		}
		if err != nil {
			return err
		}
		if original.IsReversed {
			return ErrAlreadyReversed
		}
		if original.Status != models.StatusCompleted {
			return ErrNotCompleted
		}
		originalEntries, err := s.entries.ListByTransaction(ctx, tx, original.ID)
		if err != nil {
			return err
		}

		req := mirrorRequest(original, originalEntries, reason, actor)
		posted, replayed, err := s.posting.postInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		if replayed {
			// Another reversal of the same original already exists.
			return ErrAlreadyReversed
		}

		rows, err := s.transactions.MarkReversed(ctx, tx, original.ID, posted.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyReversed
		}
		if err := s.entries.MarkReversed(ctx, tx, original.ID, posted.ID); err != nil {
			return err
		}
		if err := s.auditReversal(ctx, tx, actor, original, posted.ID); err != nil {
			return err
		}
		reversing = posted
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_transactions_reference") {
			return models.Transaction{}, ErrAlreadyReversed
		}
		return models.Transaction{}, classifyStorageErr(err)
	}
	s.posting.broadcastBalances(ctx, reversing.Entries)
	return reversing, nil
}

// mirrorRequest swaps debit and credit per original entry and ties the new
// transaction back to the original via its reference fields.
func mirrorRequest(original models.Transaction, entries []models.LedgerEntry, reason, actor string) PostRequest {
	refType := reversalType
	mirrored := make([]EntryRequest, 0, len(entries))
	for _, entry := range entries {
		req := EntryRequest{
			AccountCode:   entry.AccountCode,
			Description:   entry.Description,
			ReferenceType: &refType,
			ReferenceID:   &original.ID,
		}
		if entry.DebitAmount.IsPositive() {
			req.Side = models.SideCredit
			req.Amount = entry.DebitAmount
		} else {
			req.Side = models.SideDebit
			req.Amount = entry.CreditAmount
		}
		mirrored = append(mirrored, req)
	}
	metadata, _ := json.Marshal(map[string]string{
		"reversal_of": original.ID,
		"reason":      reason,
	})
	return PostRequest{
		Description: fmt.Sprintf("Reversal of %s: %s", original.ID, reason),
		Type:        reversalType,
		UserID:      original.UserID,
		Currency:    original.Currency,
		ReferenceID: &original.ID,
		Metadata:    string(metadata),
		Actor:       actor,
		Entries:     mirrored,
	}
}

func (s *Reversal) auditReversal(ctx context.Context, tx *sqlx.Tx, actor string, original models.Transaction, reversedBy string) error {
	oldJSON, _ := json.Marshal(map[string]any{"is_reversed": false})
	newJSON, _ := json.Marshal(map[string]any{"is_reversed": true, "reversed_by": reversedBy})
	oldValues, newValues := string(oldJSON), string(newJSON)
	return s.audit.Log(ctx, tx, store.AuditInput{
		ID:        uuid.NewString(),
		TableName: "transactions",
		RecordID:  original.ID,
		Action:    "update",
		OldValues: &oldValues,
		NewValues: &newValues,
		Actor:     actor,
	})
}
