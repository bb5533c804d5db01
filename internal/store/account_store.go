package store

import (
	"context"

	"ledger/internal/models"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

type AccountInput struct {
	ID            string
	Code          string
	Name          string
	Type          models.AccountType
	NormalBalance models.BalanceSide
	ParentID      *string
	Description   string
}

type AccountFilter struct {
	Type       models.AccountType
	ActiveOnly bool
}

const accountColumns = `id, code, name, type, normal_balance, parent_id, description, is_active, created_at`

func (s *AccountStore) Create(ctx context.Context, tx Execer, input AccountInput) error {
	query := `
		INSERT INTO accounts (id, code, name, type, normal_balance, parent_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Code, input.Name, input.Type, input.NormalBalance, input.ParentID, input.Description,
	)
	return err
}

func (s *AccountStore) GetByCode(ctx context.Context, code string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE code = $1
	`, code)
	return row, err
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return row, err
}

// GetForPosting takes a shared lock so a concurrent deactivation cannot slip
// between the active check and the entry insert.
func (s *AccountStore) GetForPosting(ctx context.Context, tx Getter, code string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE code = $1
		FOR SHARE
	`, code)
	return row, err
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, code string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE code = $1
		FOR UPDATE
	`, code)
	return row, err
}

func (s *AccountStore) List(ctx context.Context, filter AccountFilter) ([]models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE 1=1
	`
	args := []any{}
	param := 1
	if filter.Type != "" {
		query += ` AND type = $` + itoa(param)
		args = append(args, filter.Type)
		param++
	}
	if filter.ActiveOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY code`
	var rows []models.Account
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *AccountStore) UpdateName(ctx context.Context, tx Execer, id, name, description string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
	`, name, description, id)
	return err
}

func (s *AccountStore) Deactivate(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
