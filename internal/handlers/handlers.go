package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"arena/internal/entryflow"
	"arena/internal/money"
	"arena/internal/services"
	"arena/internal/validator"

	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}

var statusByKind = map[string]int{
	"account_not_found":      http.StatusNotFound,
	"match_not_found":        http.StatusNotFound,
	"match_full":             http.StatusConflict,
	"duplicate_entry":        http.StatusConflict,
	"match_has_entries":      http.StatusConflict,
	"email_taken":            http.StatusConflict,
	"insufficient_balance":   http.StatusUnprocessableEntity,
	"amount_below_fee":       http.StatusUnprocessableEntity,
	"invalid_amount":         http.StatusBadRequest,
	"invalid_match":          http.StatusBadRequest,
	"invalid_credentials":    http.StatusUnauthorized,
	"transient_lock_timeout": http.StatusServiceUnavailable,
}

// respondServiceError renders err by its service kind. Anything outside the
// taxonomy is logged and reported as a bare 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validator.ErrInvalidEmail),
		errors.Is(err, validator.ErrInvalidPassword),
		errors.Is(err, validator.ErrInvalidSessionID),
		errors.Is(err, entryflow.ErrInvalidInput),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrTooManyDecimals):
		respondError(w, http.StatusBadRequest, err.Error(), "invalid_input")
		return
	case errors.Is(err, entryflow.ErrNotStarted):
		respondError(w, http.StatusConflict, err.Error(), "no_entry_in_progress")
		return
	}
	kind := services.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error", "internal")
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondError(w, status, err.Error(), kind)
}
