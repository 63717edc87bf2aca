package services

import (
	"context"
	"errors"
	"time"

	"arena/internal/db"
	"arena/internal/models"
	"arena/internal/money"
	"arena/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AccountLocker interface {
	GetByID(ctx context.Context, accountID string) (store.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (store.Account, error)
	Debit(ctx context.Context, tx store.Getter, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
}

type SessionResolver interface {
	ResolveAccountID(ctx context.Context, q store.Getter, sessionID string) (string, error)
}

type MatchLocker interface {
	Get(ctx context.Context, matchID int64) (store.Match, error)
	GetForUpdate(ctx context.Context, tx store.Getter, matchID int64) (store.Match, error)
}

type EntryLedger interface {
	CountByMatch(ctx context.Context, q store.Getter, matchID int64) (int, error)
	ExistsFor(ctx context.Context, q store.Getter, accountID string, matchID int64) (bool, error)
	InsertGuarded(ctx context.Context, tx store.Getter, id, accountID string, matchID int64, amount decimal.Decimal) (store.Entry, error)
}

type LiveHub interface {
	BroadcastBalance(accountID string, update models.BalanceUpdate)
	BroadcastSeats(update models.SeatUpdate)
}

type AdmissionRecorder interface {
	ObserveAdmission(outcome string, elapsed time.Duration)
}

type AdmissionConfig struct {
	// RequireFullFee rejects amounts below the match's declared entry fee.
	RequireFullFee bool
}

type AdmissionService struct {
	txRunner db.TxRunner
	reader   store.Getter
	accounts AccountLocker
	sessions SessionResolver
	matches  MatchLocker
	entries  EntryLedger
	hub      LiveHub
	recorder AdmissionRecorder
	logger   *zap.Logger
	cfg      AdmissionConfig
}

func NewAdmissionService(txRunner db.TxRunner, reader store.Getter, accounts AccountLocker, sessions SessionResolver, matches MatchLocker, entries EntryLedger, hub LiveHub, recorder AdmissionRecorder, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	return &AdmissionService{
		txRunner: txRunner,
		reader:   reader,
		accounts: accounts,
		sessions: sessions,
		matches:  matches,
		entries:  entries,
		hub:      hub,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
	}
}

// AccountKey identifies the caller either directly or through a bound chat
// session. AccountID wins when both are set.
type AccountKey struct {
	AccountID string
	SessionID string
}

type EnterRequest struct {
	Account AccountKey
	MatchID int64
	Amount  decimal.Decimal
}

type MatchSummary struct {
	ID           int64
	GameName     string
	MatchName    string
	TimeKey      string
	PerKillPoint decimal.Decimal
	FirstPrize   decimal.Decimal
	SecondPrize  decimal.Decimal
	ThirdPrize   decimal.Decimal
	TotalSeats   int
}

type EntryReceipt struct {
	EntryID          string
	AccountID        string
	Match            MatchSummary
	EntryFee         decimal.Decimal
	AmountPaid       decimal.Decimal
	RemainingBalance decimal.Decimal
	// RemainingSeats is derived from the count seen before the insert.
	RemainingSeats int
	EnteredAt      time.Time
}

type Eligibility struct {
	IsFull               bool
	AlreadyEntered       bool
	HasSufficientBalance bool
	AvailableSeats       int
	UserBalance          decimal.Decimal
	EntryFee             decimal.Decimal
}

func summarize(m store.Match) MatchSummary {
	return MatchSummary{
		ID:           m.ID,
		GameName:     m.GameName,
		MatchName:    m.MatchName,
		TimeKey:      m.TimeKey,
		PerKillPoint: m.PerKillPoint,
		FirstPrize:   m.FirstPrize,
		SecondPrize:  m.SecondPrize,
		ThirdPrize:   m.ThirdPrize,
		TotalSeats:   m.TotalSeats,
	}
}

// Enter debits the account and records the entry in one transaction.
// Every precondition is re-checked under row locks; nothing a caller saw
// from CheckEligibility is trusted.
func (s *AdmissionService) Enter(ctx context.Context, req EnterRequest) (EntryReceipt, error) {
	started := time.Now()
	receipt, err := s.enter(ctx, req)
	s.recorder.ObserveAdmission(Kind(err), time.Since(started))
	if err != nil {
		if Kind(err) == "internal" {
			s.logger.Error("admission failed", zap.Int64("match_id", req.MatchID), zap.Error(err))
		} else {
			s.logger.Debug("admission rejected", zap.Int64("match_id", req.MatchID), zap.String("kind", Kind(err)))
		}
		return EntryReceipt{}, err
	}
	s.logger.Info("entry admitted",
		zap.String("entry_id", receipt.EntryID),
		zap.String("account_id", receipt.AccountID),
		zap.Int64("match_id", receipt.Match.ID),
		zap.String("amount_paid", money.Format(receipt.AmountPaid)),
		zap.Int("remaining_seats", receipt.RemainingSeats),
	)
	s.hub.BroadcastBalance(receipt.AccountID, models.BalanceUpdate{
		AccountID: receipt.AccountID,
		Balance:   money.Format(receipt.RemainingBalance),
	})
	s.hub.BroadcastSeats(models.SeatUpdate{
		MatchID:        receipt.Match.ID,
		TotalSeats:     receipt.Match.TotalSeats,
		RemainingSeats: max(receipt.RemainingSeats, 0),
	})
	return receipt, nil
}

func (s *AdmissionService) enter(ctx context.Context, req EnterRequest) (EntryReceipt, error) {
	if !req.Amount.IsPositive() {
		return EntryReceipt{}, ErrInvalidAmount
	}
	var receipt EntryReceipt
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		accountID, err := s.resolveAccountID(ctx, tx, req.Account)
		if err != nil {
			return err
		}
		account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
		if err != nil {
			return notFound(err, ErrAccountNotFound)
		}
		match, err := s.matches.GetForUpdate(ctx, tx, req.MatchID)
		if err != nil {
			return notFound(err, ErrMatchNotFound)
		}
		if s.cfg.RequireFullFee && req.Amount.LessThan(match.EntryFee) {
			return ErrAmountBelowFee
		}
		occupied, err := s.entries.CountByMatch(ctx, tx, match.ID)
		if err != nil {
			return err
		}
		if occupied >= match.TotalSeats {
			return ErrMatchFull
		}
		if account.Balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}
		entered, err := s.entries.ExistsFor(ctx, tx, account.ID, match.ID)
		if err != nil {
			return err
		}
		if entered {
			return ErrDuplicateEntry
		}
		balance, err := s.accounts.Debit(ctx, tx, account.ID, req.Amount)
		if err != nil {
			return notFound(err, ErrInsufficientBalance)
		}
		entry, err := s.entries.InsertGuarded(ctx, tx, uuid.NewString(), account.ID, match.ID, req.Amount)
		switch {
		case errors.Is(err, store.ErrCapacityReached):
			return ErrMatchFull
		case store.IsUniqueViolation(err):
			return ErrDuplicateEntry
		case err != nil:
			return err
		}
		receipt = EntryReceipt{
			EntryID:          entry.ID,
			AccountID:        account.ID,
			Match:            summarize(match),
			EntryFee:         match.EntryFee,
			AmountPaid:       entry.AmountPaid,
			RemainingBalance: balance,
			RemainingSeats:   match.TotalSeats - occupied - 1,
			EnteredAt:        entry.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return EntryReceipt{}, transient(err)
	}
	return receipt, nil
}

// CheckEligibility answers the same seat, duplicate and balance questions
// as Enter using the match's declared fee. It never writes and holds no
// locks, so its answer may be stale by the time Enter runs.
func (s *AdmissionService) CheckEligibility(ctx context.Context, key AccountKey, matchID int64) (Eligibility, error) {
	accountID, err := s.resolveAccountID(ctx, s.reader, key)
	if err != nil {
		return Eligibility{}, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return Eligibility{}, notFound(err, ErrAccountNotFound)
	}
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return Eligibility{}, notFound(err, ErrMatchNotFound)
	}
	occupied, err := s.entries.CountByMatch(ctx, s.reader, match.ID)
	if err != nil {
		return Eligibility{}, err
	}
	entered, err := s.entries.ExistsFor(ctx, s.reader, account.ID, match.ID)
	if err != nil {
		return Eligibility{}, err
	}
	available := max(match.TotalSeats-occupied, 0)
	return Eligibility{
		IsFull:               available == 0,
		AlreadyEntered:       entered,
		HasSufficientBalance: account.Balance.GreaterThanOrEqual(match.EntryFee),
		AvailableSeats:       available,
		UserBalance:          account.Balance,
		EntryFee:             match.EntryFee,
	}, nil
}

func (s *AdmissionService) resolveAccountID(ctx context.Context, q store.Getter, key AccountKey) (string, error) {
	if key.AccountID != "" {
		return key.AccountID, nil
	}
	if key.SessionID == "" {
		return "", ErrAccountNotFound
	}
	accountID, err := s.sessions.ResolveAccountID(ctx, q, key.SessionID)
	if err != nil {
		return "", notFound(err, ErrAccountNotFound)
	}
	return accountID, nil
}

// notFound swaps sql.ErrNoRows for the given sentinel.
func notFound(err, sentinel error) error {
	if store.IsNotFound(err) {
		return sentinel
	}
	return err
}
