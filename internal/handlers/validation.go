package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var errInvalidAsOf = errors.New("invalid as-of timestamp")

type postEntryPayload struct {
	AccountCode   string  `json:"account_code" validate:"required"`
	Side          string  `json:"side" validate:"required,oneof=debit credit"`
	Amount        string  `json:"amount" validate:"required"`
	Description   string  `json:"description"`
	ReferenceType *string `json:"reference_type"`
	ReferenceID   *string `json:"reference_id"`
}

type postTransactionPayload struct {
	Description string             `json:"description" validate:"required"`
	Type        string             `json:"type" validate:"required"`
	UserID      *string            `json:"user_id"`
	Currency    string             `json:"currency" validate:"required,min=3,max=8"`
	ReferenceID *string            `json:"reference_id"`
	Metadata    json.RawMessage    `json:"metadata"`
	Entries     []postEntryPayload `json:"entries" validate:"required,min=2,dive"`
}

func (p postTransactionPayload) toRequest(actor string) (services.PostRequest, error) {
	entries := make([]services.EntryRequest, 0, len(p.Entries))
	for _, entry := range p.Entries {
		amount, err := money.Parse(entry.Amount)
		if err != nil {
			return services.PostRequest{}, err
		}
		entries = append(entries, services.EntryRequest{
			AccountCode:   entry.AccountCode,
			Side:          models.BalanceSide(entry.Side),
			Amount:        amount,
			Description:   entry.Description,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
		})
	}
	metadata := ""
	if len(p.Metadata) > 0 {
		metadata = string(p.Metadata)
	}
	return services.PostRequest{
		Description: p.Description,
		Type:        p.Type,
		UserID:      p.UserID,
		Currency:    p.Currency,
		ReferenceID: p.ReferenceID,
		Metadata:    metadata,
		Actor:       actor,
		Entries:     entries,
	}, nil
}

type createAccountPayload struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	NormalBalance string `json:"normal_balance" validate:"omitempty,oneof=debit credit"`
	ParentCode    string `json:"parent_code"`
	Description   string `json:"description"`
}

type renameAccountPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type reversePayload struct {
	Reason string `json:"reason" validate:"required"`
}

func parseAsOf(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errInvalidAsOf
	}
	return &parsed, nil
}
