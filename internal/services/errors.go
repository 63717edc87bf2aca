package services

import (
	"context"
	"errors"

	"arena/internal/db"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchFull            = errors.New("match is full")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrDuplicateEntry       = errors.New("already entered this match")
	ErrTransientLockTimeout = errors.New("store is busy, retry shortly")
	ErrMatchHasEntries      = errors.New("match has entries and cannot be deleted")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAmountBelowFee       = errors.New("amount is below the match entry fee")
	ErrInvalidMatch         = errors.New("invalid match")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAccountNotFound, "account_not_found"},
	{ErrMatchNotFound, "match_not_found"},
	{ErrMatchFull, "match_full"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrDuplicateEntry, "duplicate_entry"},
	{ErrTransientLockTimeout, "transient_lock_timeout"},
	{ErrMatchHasEntries, "match_has_entries"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrAmountBelowFee, "amount_below_fee"},
	{ErrInvalidMatch, "invalid_match"},
	{ErrEmailTaken, "email_taken"},
	{ErrInvalidCredentials, "invalid_credentials"},
}

// Kind returns a stable snake_case label for err, "ok" for nil and
// "internal" for anything outside the service taxonomy.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// transient folds store contention into ErrTransientLockTimeout. Other
// errors pass through untouched.
func transient(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrLockTimeout), errors.Is(err, db.ErrRetryLimit), errors.Is(err, context.DeadlineExceeded):
		return ErrTransientLockTimeout
	}
	return err
}
