package handlers

import (
	"errors"
	"net/http"

	"arena/internal/entryflow"
	"arena/internal/services"
	"arena/internal/validator"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// sessionParam returns the validated {session} path value.
func (h *Handler) sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := chi.URLParam(r, "session")
	if err := validator.ValidateSessionID(sessionID); err != nil {
		h.respondServiceError(w, r, err)
		return "", false
	}
	return sessionID, true
}

type chatEnterRequest struct {
	MatchID int64  `json:"match_id"`
	Amount  string `json:"amount"`
}

func (h *Handler) ChatEnter(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionParam(w, r)
	if !ok {
		return
	}
	var req chatEnterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MatchID <= 0 {
		respondError(w, http.StatusBadRequest, errInvalidID.Error(), "invalid_input")
		return
	}
	h.enter(w, r, services.AccountKey{SessionID: sessionID}, req.MatchID, req.Amount)
}

func (h *Handler) ChatEligibility(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionParam(w, r)
	if !ok {
		return
	}
	h.eligibility(w, r, services.AccountKey{SessionID: sessionID})
}

func stepJSON(step entryflow.Step) map[string]any {
	out := map[string]any{
		"state":  step.State.String(),
		"prompt": step.Prompt,
	}
	if step.MatchID != 0 {
		out["match_id"] = step.MatchID
	}
	if step.Receipt != nil {
		out["receipt"] = receiptJSON(*step.Receipt)
	}
	return out
}

func (h *Handler) StartFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, stepJSON(h.flows.Start(sessionID)))
}

type flowInputRequest struct {
	Text string `json:"text"`
}

// SubmitFlow feeds one chat message to the session's flow. Rejections carry
// the prompt to show next alongside the error.
func (h *Handler) SubmitFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionParam(w, r)
	if !ok {
		return
	}
	var req flowInputRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	step, err := h.flows.Submit(r.Context(), sessionID, req.Text)
	body := stepJSON(step)
	if err != nil {
		code := flowErrorCode(err)
		message := err.Error()
		if code == "internal" {
			h.logger.Error("chat entry failed", zap.String("session_id", sessionID), zap.Error(err))
			message = "internal error"
		}
		body["error"] = message
		body["code"] = code
	}
	respondJSON(w, http.StatusOK, body)
}

func flowErrorCode(err error) string {
	switch {
	case errors.Is(err, entryflow.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, entryflow.ErrNotStarted):
		return "no_entry_in_progress"
	}
	return services.Kind(err)
}

func (h *Handler) CancelFlow(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, stepJSON(h.flows.Cancel(sessionID)))
}
