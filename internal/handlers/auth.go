package handlers

import (
	"net/http"
	"time"

	"arena/internal/auth"
	"arena/internal/middleware"
	"arena/internal/money"
	"arena/internal/services"
	"arena/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.accounts.Register(r.Context(), services.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondToken(w, http.StatusCreated, account)
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	SessionID string `json:"session_id"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.accounts.Login(r.Context(), services.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondToken(w, http.StatusOK, account)
}

func (h *Handler) respondToken(w http.ResponseWriter, status int, account store.Account) {
	token, err := auth.GenerateToken(h.cfg.JWTSecret, account.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token", "internal")
		return
	}
	respondJSON(w, status, map[string]string{
		"token":      token,
		"account_id": account.ID,
		"email":      account.Email,
	})
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unbound, err := h.accounts.Logout(r.Context(), req.SessionID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"unbound": unbound})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	overview, err := h.accounts.MyAccount(r.Context(), accountID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, overviewJSON(overview))
}

type historyJSON struct {
	Serial    int       `json:"serial"`
	Kind      string    `json:"kind"`
	MatchID   int64     `json:"match_id"`
	GameName  string    `json:"game_name"`
	MatchName string    `json:"match_name"`
	TimeKey   string    `json:"time_key"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func overviewJSON(o services.AccountOverview) map[string]any {
	history := make([]historyJSON, 0, len(o.History))
	for _, item := range o.History {
		history = append(history, historyJSON{
			Serial:    item.Serial,
			Kind:      item.Kind,
			MatchID:   item.MatchID,
			GameName:  item.GameName,
			MatchName: item.MatchName,
			TimeKey:   item.TimeKey,
			Amount:    money.Format(item.Amount),
			CreatedAt: item.CreatedAt,
		})
	}
	return map[string]any{
		"id":            o.ID,
		"email":         o.Email,
		"balance":       money.Format(o.Balance),
		"total_matches": o.TotalMatches,
		"created_at":    o.CreatedAt,
		"history":       history,
	}
}
