package store

import (
	"context"
	"time"

	"ledger/internal/models"
)

type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

type AuditInput struct {
	ID        string
	TableName string
	RecordID  string
	Action    string
	OldValues *string
	NewValues *string
	Actor     string
}

type AuditFilter struct {
	TableName string
	RecordID  string
	Since     *time.Time
	Limit     int
	Offset    int
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, input AuditInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_trail (id, table_name, record_id, action, old_values, new_values, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, input.ID, input.TableName, input.RecordID, input.Action, input.OldValues, input.NewValues, input.Actor)
	return err
}

func (s *AuditStore) List(ctx context.Context, filter AuditFilter) ([]models.AuditRecord, error) {
	query := `
		SELECT id, table_name, record_id, action, old_values, new_values, actor, created_at
		FROM audit_trail
		WHERE 1=1
	`
	args := []any{}
	param := 1
	if filter.TableName != "" {
		query += ` AND table_name = $` + itoa(param)
		args = append(args, filter.TableName)
		param++
	}
	if filter.RecordID != "" {
		query += ` AND record_id = $` + itoa(param)
		args = append(args, filter.RecordID)
		param++
	}
	if filter.Since != nil {
		query += ` AND created_at >= $` + itoa(param)
		args = append(args, *filter.Since)
		param++
	}
	query += ` ORDER BY created_at, id LIMIT $` + itoa(param) + ` OFFSET $` + itoa(param+1)
	args = append(args, filter.Limit, filter.Offset)
	var rows []models.AuditRecord
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
