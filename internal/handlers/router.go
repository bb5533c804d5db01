package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ledger/internal/auth"
	"ledger/internal/middleware"
	"ledger/internal/websocket"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/accounts", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireScope(auth.ScopeAdmin)).Post("/", h.CreateAccount)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/", h.ListAccounts)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/{code}", h.GetAccount)
		r.With(middleware.RequireScope(auth.ScopeAdmin)).Put("/{code}", h.RenameAccount)
		r.With(middleware.RequireScope(auth.ScopeAdmin)).Delete("/{code}", h.DeactivateAccount)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/{code}/balance", h.GetBalance)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/{code}/balance/verify", h.VerifyBalance)
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireScope(auth.ScopePost)).Post("/", h.PostTransaction)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/", h.ListTransactions)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/{id}", h.GetTransaction)
		r.With(middleware.RequireScope(auth.ScopeReverse)).Post("/{id}/reverse", h.ReverseTransaction)
	})

	router.Route("/reports", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/trial-balance", h.TrialBalance)
		r.With(middleware.RequireScope(auth.ScopeRead)).Get("/audit-trail", h.AuditTrail)
	})

	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

// WSBalances upgrades to a websocket feed of balance updates. Browsers
// cannot set headers on websocket requests, so the token may also arrive
// as a query parameter.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if !claims.HasScope(auth.ScopeRead) {
		respondError(w, http.StatusForbidden, "insufficient scope")
		return
	}
	var codes []string
	if raw := r.URL.Query().Get("accounts"); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	websocket.ServeWS(w, r, h.hub, codes)
}
