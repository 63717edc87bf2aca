package handlers

import (
	"net/http"

	"arena/internal/middleware"
	"arena/internal/money"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	rows, err := h.accounts.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		sessionID := ""
		if row.SessionID != nil {
			sessionID = *row.SessionID
		}
		normalized = append(normalized, map[string]any{
			"id":            row.ID,
			"email":         row.Email,
			"balance":       money.Format(row.Balance),
			"total_matches": row.TotalMatches,
			"session_id":    sessionID,
			"created_at":    row.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) AdminGetBalance(w http.ResponseWriter, r *http.Request) {
	overview, err := h.accounts.AdminGetBalance(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, overviewJSON(overview))
}

type setBalanceRequest struct {
	Balance string `json:"balance"`
}

// AdminSetBalance overwrites the balance outright; it is not a delta.
func (h *Handler) AdminSetBalance(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.AccountIDFromContext(r.Context())
	var req setBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	balance, err := money.ParseNonNegative(req.Balance)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	account, err := h.accounts.AdminSetBalance(r.Context(), actorID, chi.URLParam(r, "email"), balance)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"account_id": account.ID,
		"email":      account.Email,
		"balance":    money.Format(account.Balance),
	})
}
