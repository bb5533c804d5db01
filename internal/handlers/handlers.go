package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ledger/internal/config"
	"ledger/internal/services"
	"ledger/internal/websocket"
)

type Handler struct {
	cfg          config.Config
	registry     RegistryService
	posting      PostingService
	balances     BalanceService
	reversal     ReversalService
	reporting    ReportingService
	transactions TransactionReader
	hub          *websocket.Hub
}

func New(cfg config.Config, registry RegistryService, posting PostingService, balances BalanceService, reversal ReversalService, reporting ReportingService, transactions TransactionReader, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:          cfg,
		registry:     registry,
		posting:      posting,
		balances:     balances,
		reversal:     reversal,
		reporting:    reporting,
		transactions: transactions,
		hub:          hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps engine sentinels onto the API contract. Handlers
// that need a different mapping for a specific error handle it before
// delegating here.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrTooFewEntries),
		errors.Is(err, services.ErrInvalidEntry),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrCurrencyRequired),
		errors.Is(err, services.ErrInvalidAccountSpec),
		errors.Is(err, services.ErrInvalidParent):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnknownAccount),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUnbalanced),
		errors.Is(err, services.ErrDuplicateCode),
		errors.Is(err, services.ErrAlreadyReversed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInactiveAccount),
		errors.Is(err, services.ErrNotCompleted):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		respondError(w, http.StatusServiceUnavailable, "storage_unavailable")
	case errors.Is(err, services.ErrBalanceDrift),
		errors.Is(err, services.ErrLedgerOutOfBalance):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
