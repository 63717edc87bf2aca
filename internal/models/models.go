package models

import "time"

// MatchStarting is published once per enrolled account when a match's
// scheduled minute arrives.
type MatchStarting struct {
	MatchID     int64     `json:"match_id"`
	GameName    string    `json:"game_name"`
	MatchName   string    `json:"match_name"`
	TimeKey     string    `json:"time_key"`
	AccountID   string    `json:"account_id"`
	Email       string    `json:"email"`
	SessionID   string    `json:"session_id,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// SeatUpdate is pushed to live clients after a committed admission.
type SeatUpdate struct {
	MatchID        int64 `json:"match_id"`
	TotalSeats     int   `json:"total_seats"`
	RemainingSeats int   `json:"remaining_seats"`
}

// BalanceUpdate is pushed to the owning account's live clients.
type BalanceUpdate struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}
