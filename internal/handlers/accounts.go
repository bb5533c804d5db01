package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/middleware"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
)

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload createAccountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	account, err := h.registry.Create(r.Context(), services.AccountSpec{
		Code:          payload.Code,
		Name:          payload.Name,
		Type:          models.AccountType(payload.Type),
		NormalBalance: models.BalanceSide(payload.NormalBalance),
		ParentCode:    payload.ParentCode,
		Description:   payload.Description,
		Actor:         middleware.CallerFromContext(r.Context()),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.AccountFilter{
		Type:       models.AccountType(query.Get("type")),
		ActiveOnly: query.Get("active") == "true",
	}
	accounts, err := h.registry.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.registry.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var payload renameAccountPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	account, err := h.registry.Rename(r.Context(), chi.URLParam(r, "code"), payload.Name, payload.Description, middleware.CallerFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	account, nonZero, err := h.registry.Deactivate(r.Context(), chi.URLParam(r, "code"), middleware.CallerFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	response := map[string]any{"account": account}
	if nonZero {
		response["warning"] = services.ErrAccountInUse.Error()
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	query := r.URL.Query()
	userID := query.Get("userId")
	asOf, err := parseAsOf(query.Get("asOf"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_as_of")
		return
	}
	var balance models.AccountBalance
	if asOf != nil || query.Get("recompute") == "true" {
		balance, err = h.balances.Recompute(r.Context(), code, userID, asOf)
	} else {
		balance, err = h.balances.Get(r.Context(), code, userID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

func (h *Handler) VerifyBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.balances.Verify(r.Context(), chi.URLParam(r, "code"), r.URL.Query().Get("userId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "balance": balance})
}
