package handlers

import (
	"net/http"
	"time"

	"arena/internal/middleware"
	"arena/internal/money"
	"arena/internal/services"
	"arena/internal/store"

	"github.com/shopspring/decimal"
)

type matchJSON struct {
	ID             int64     `json:"id"`
	GameName       string    `json:"game_name"`
	MatchName      string    `json:"match_name"`
	EntryFee       string    `json:"entry_fee"`
	PerKillPoint   string    `json:"per_kill_point"`
	FirstPrize     string    `json:"first_prize"`
	SecondPrize    string    `json:"second_prize"`
	ThirdPrize     string    `json:"third_prize"`
	TotalSeats     int       `json:"total_seats"`
	OccupiedSeats  *int      `json:"occupied_seats,omitempty"`
	AvailableSeats *int      `json:"available_seats,omitempty"`
	TimeKey        string    `json:"time_key"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}

func toMatchJSON(m store.Match) matchJSON {
	return matchJSON{
		ID:           m.ID,
		GameName:     m.GameName,
		MatchName:    m.MatchName,
		EntryFee:     money.Format(m.EntryFee),
		PerKillPoint: money.Format(m.PerKillPoint),
		FirstPrize:   money.Format(m.FirstPrize),
		SecondPrize:  money.Format(m.SecondPrize),
		ThirdPrize:   money.Format(m.ThirdPrize),
		TotalSeats:   m.TotalSeats,
		TimeKey:      m.TimeKey,
		ScheduledAt:  m.ScheduledAt,
	}
}

func viewJSON(v services.MatchView) matchJSON {
	out := toMatchJSON(v.Match)
	occupied, available := v.OccupiedSeats, v.AvailableSeats
	out.OccupiedSeats = &occupied
	out.AvailableSeats = &available
	return out
}

func viewsJSON(views []services.MatchView) []matchJSON {
	out := make([]matchJSON, 0, len(views))
	for _, v := range views {
		out = append(out, viewJSON(v))
	}
	return out
}

func (h *Handler) ListToday(w http.ResponseWriter, r *http.Request) {
	views, err := h.catalog.ListToday(r.Context(), r.URL.Query().Get("game"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsJSON(views))
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.catalog.Games(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	out := make([]map[string]string, 0, len(games))
	for _, g := range games {
		out = append(out, map[string]string{"name": g.Name, "slug": g.Slug})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.catalog.Get(r.Context(), matchID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewJSON(view))
}

func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	h.eligibility(w, r, services.AccountKey{AccountID: accountID})
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request, key services.AccountKey) {
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	e, err := h.admission.CheckEligibility(r.Context(), key, matchID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"match_id":               matchID,
		"is_full":                e.IsFull,
		"already_entered":        e.AlreadyEntered,
		"has_sufficient_balance": e.HasSufficientBalance,
		"available_seats":        e.AvailableSeats,
		"user_balance":           money.Format(e.UserBalance),
		"entry_fee":              money.Format(e.EntryFee),
	})
}

type enterRequest struct {
	// Amount is optional; the match's entry fee is charged when it is empty.
	Amount string `json:"amount"`
}

func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	accountID, _ := middleware.AccountIDFromContext(r.Context())
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	var req enterRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	h.enter(w, r, services.AccountKey{AccountID: accountID}, matchID, req.Amount)
}

func (h *Handler) enter(w http.ResponseWriter, r *http.Request, key services.AccountKey, matchID int64, rawAmount string) {
	amount, ok := h.resolveAmount(w, r, matchID, rawAmount)
	if !ok {
		return
	}
	receipt, err := h.admission.Enter(r.Context(), services.EnterRequest{
		Account: key,
		MatchID: matchID,
		Amount:  amount,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, receiptJSON(receipt))
}

func (h *Handler) resolveAmount(w http.ResponseWriter, r *http.Request, matchID int64, raw string) (decimal.Decimal, bool) {
	if raw == "" {
		view, err := h.catalog.Get(r.Context(), matchID)
		if err != nil {
			h.respondServiceError(w, r, err)
			return decimal.Zero, false
		}
		return view.EntryFee, true
	}
	amount, err := money.ParsePositive(raw)
	if err != nil {
		h.respondServiceError(w, r, err)
		return decimal.Zero, false
	}
	return amount, true
}

func receiptJSON(rc services.EntryReceipt) map[string]any {
	return map[string]any{
		"entry_id":   rc.EntryID,
		"account_id": rc.AccountID,
		"match": map[string]any{
			"id":             rc.Match.ID,
			"game_name":      rc.Match.GameName,
			"match_name":     rc.Match.MatchName,
			"time_key":       rc.Match.TimeKey,
			"per_kill_point": money.Format(rc.Match.PerKillPoint),
			"first_prize":    money.Format(rc.Match.FirstPrize),
			"second_prize":   money.Format(rc.Match.SecondPrize),
			"third_prize":    money.Format(rc.Match.ThirdPrize),
			"total_seats":    rc.Match.TotalSeats,
		},
		"entry_fee":         money.Format(rc.EntryFee),
		"amount_paid":       money.Format(rc.AmountPaid),
		"remaining_balance": money.Format(rc.RemainingBalance),
		"remaining_seats":   rc.RemainingSeats,
		"entered_at":        rc.EnteredAt,
	}
}

func (h *Handler) AdminListMatches(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	views, err := h.catalog.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsJSON(views))
}

type createMatchRequest struct {
	GameName     string `json:"game_name"`
	MatchName    string `json:"match_name"`
	EntryFee     string `json:"entry_fee"`
	PerKillPoint string `json:"per_kill_point"`
	FirstPrize   string `json:"first_prize"`
	SecondPrize  string `json:"second_prize"`
	ThirdPrize   string `json:"third_prize"`
	TotalSeats   int    `json:"total_seats"`
	TimeKey      string `json:"time_key"`
}

func (h *Handler) AdminCreateMatch(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.AccountIDFromContext(r.Context())
	var req createMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amounts := make([]decimal.Decimal, 5)
	for i, raw := range []string{req.EntryFee, req.PerKillPoint, req.FirstPrize, req.SecondPrize, req.ThirdPrize} {
		if raw == "" {
			continue
		}
		value, err := money.ParseNonNegative(raw)
		if err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		amounts[i] = value
	}
	match, err := h.catalog.Create(r.Context(), services.CreateMatchRequest{
		ActorID:      actorID,
		GameName:     req.GameName,
		MatchName:    req.MatchName,
		EntryFee:     amounts[0],
		PerKillPoint: amounts[1],
		FirstPrize:   amounts[2],
		SecondPrize:  amounts[3],
		ThirdPrize:   amounts[4],
		TotalSeats:   req.TotalSeats,
		TimeKey:      req.TimeKey,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMatchJSON(match))
}

func (h *Handler) AdminDeleteMatch(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.AccountIDFromContext(r.Context())
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Delete(r.Context(), actorID, matchID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": matchID})
}
