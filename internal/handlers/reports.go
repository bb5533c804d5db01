package handlers

import (
	"net/http"
	"time"

	"ledger/internal/store"
)

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r.URL.Query().Get("asOf"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_as_of")
		return
	}
	report, err := h.reporting.TrialBalance(r.Context(), asOf)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	filter := store.AuditFilter{
		TableName: query.Get("table"),
		RecordID:  query.Get("recordId"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if raw := query.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		filter.Since = &since
	}
	records, err := h.reporting.Audit(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"page":    page,
		"limit":   limit,
	})
}
