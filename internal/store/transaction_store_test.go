package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/models"
)

func TestTransactionStoreCreate(t *testing.T) {
	ctx := context.Background()
	ref := "order-42"
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO transactions") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 10 {
				t.Fatalf("expected 10 args, got %d", len(args))
			}
			if args[0] != "tx-1" || args[2] != "payment" || args[5] != "USD" {
				t.Fatalf("unexpected args: %#v", args)
			}
			if ptr, ok := args[7].(*string); !ok || *ptr != ref {
				t.Fatalf("unexpected reference arg: %#v", args[7])
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	err := store.Create(ctx, execer, TransactionInput{
		ID:              "tx-1",
		Description:     "order payment",
		Type:            "payment",
		TotalAmount:     decimal.RequireFromString("10.00"),
		Currency:        "USD",
		Status:          models.StatusCompleted,
		ReferenceID:     &ref,
		TransactionDate: time.Now(),
		Metadata:        "{}",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreFindByReference(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE type = $1 AND reference_id = $2 AND is_reversed = FALSE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "payment" || args[1] != "order-42" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.Transaction) = models.Transaction{ID: "tx-1"}
			return nil
		},
	}
	store := NewTransactionStore(stubDB{})
	row, err := store.FindByReference(ctx, getter, "payment", "order-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.ID != "tx-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestTransactionStoreMarkReversedConditional(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "AND is_reversed = FALSE") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "rev-1" || args[1] != "tx-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewTransactionStore(stubDB{})
	rows, err := store.MarkReversed(ctx, execer, "tx-1", "rev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows when another reversal won, got %d", rows)
	}
}

func TestTransactionStoreListByType(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "AND type = $1") || !strings.Contains(query, "LIMIT $2 OFFSET $3") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != "payment" || args[1] != 20 || args[2] != 40 {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]models.Transaction) = []models.Transaction{{ID: "tx-1"}}
			return nil
		},
	})
	rows, err := store.List(ctx, "payment", 20, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestTransactionStoreListNoType(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if strings.Contains(query, "AND type =") {
				t.Fatalf("unexpected type filter: %s", query)
			}
			if !strings.Contains(query, "LIMIT $1 OFFSET $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			return nil
		},
	})
	if _, err := store.List(ctx, "", 20, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
