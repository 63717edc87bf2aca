package handlers

import (
	"net/http"
	"strings"

	"arena/internal/middleware"
	"arena/internal/store"
	"arena/internal/websocket"

	"github.com/jmoiron/sqlx"
)

var grantableRoles = map[string]struct{}{
	store.RoleManageMatches:  {},
	store.RoleManageBalances: {},
	store.RoleViewAudit:      {},
}

type promoteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.AccountIDFromContext(r.Context())
	var req promoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required", "invalid_input")
		return
	}
	target, err := h.lookup.GetByEmail(r.Context(), email)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "account not found", "account_not_found")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, target.ID, false, &actorID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, store.AuditInput{
			ActorID:    actorID,
			Action:     "promote_admin",
			EntityType: "admin",
			EntityID:   target.ID,
			Data:       map[string]string{"email": target.Email},
		})
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted", "account_id": target.ID})
}

type grantRoleRequest struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.AccountIDFromContext(r.Context())
	var req grantRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := grantableRoles[req.Role]; !ok || req.AccountID == "" {
		respondError(w, http.StatusBadRequest, "unknown role or missing account", "invalid_input")
		return
	}
	isAdmin, isSuper, err := h.admin.IsAdmin(r.Context(), req.AccountID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin", "invalid_input")
		return
	}
	if isSuper {
		respondError(w, http.StatusBadRequest, "super admins hold every role", "invalid_input")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.GrantRole(r.Context(), tx, req.AccountID, req.Role); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, store.AuditInput{
			ActorID:    actorID,
			Action:     "grant_role",
			EntityType: "admin_role",
			EntityID:   req.AccountID,
			Data:       map[string]string{"role": req.Role},
		})
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "role_granted"})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, rows)
}

// WSUpdates streams balance and seat updates; QueryAuth has already put
// the account on the context.
func (h *Handler) WSUpdates(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, accountID)
}
