package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/middleware"
)

func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var payload postTransactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	req, err := payload.toRequest(middleware.CallerFromContext(r.Context()))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	txn, replayed, err := h.posting.Post(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if replayed {
		// Duplicate reference id: same transaction, same body, 200 not 201.
		respondJSON(w, http.StatusOK, txn)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.transactions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	txns, err := h.transactions.List(r.Context(), query.Get("type"), limit, (page-1)*limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

func (h *Handler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	var payload reversePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "reason is required")
		return
	}
	txn, err := h.reversal.Reverse(r.Context(), chi.URLParam(r, "id"), payload.Reason, middleware.CallerFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}
