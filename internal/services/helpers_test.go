package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"arena/internal/models"
	"arena/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// memLedger is an in-memory account/match/entry store. Each method is
// individually atomic; serialRunner provides transaction semantics on top.
type memLedger struct {
	mu       sync.Mutex
	accounts map[string]store.Account
	sessions map[string]string
	matches  map[int64]store.Match
	entries  []store.Entry

	// insertErr, when set, is returned by InsertGuarded after the debit.
	insertErr error
}

type memSnapshot struct {
	accounts map[string]store.Account
	entries  []store.Entry
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: map[string]store.Account{},
		sessions: map[string]string{},
		matches:  map[int64]store.Match{},
	}
}

func (m *memLedger) addAccount(id string, balance int64) {
	m.accounts[id] = store.Account{ID: id, Email: id + "@example.com", Balance: decimal.NewFromInt(balance)}
}

func (m *memLedger) addMatch(id int64, seats int, fee int64) {
	m.matches[id] = store.Match{ID: id, GameName: "Arena", MatchName: "Match", TotalSeats: seats, EntryFee: decimal.NewFromInt(fee), TimeKey: "2026-03-01-18-30"}
}

func entryFor(accountID string, matchID int64) store.Entry {
	return store.Entry{ID: accountID + "-entry", AccountID: accountID, MatchID: matchID, AmountPaid: decimal.NewFromInt(1), CreatedAt: time.Now()}
}

func (m *memLedger) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[string]store.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	return memSnapshot{accounts: accounts, entries: append([]store.Entry(nil), m.entries...)}
}

func (m *memLedger) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = s.accounts
	m.entries = s.entries
}

func (m *memLedger) balance(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memLedger) entryCount(matchID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(matchID)
}

func (m *memLedger) pairCount(accountID string, matchID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.AccountID == accountID && e.MatchID == matchID {
			n++
		}
	}
	return n
}

func (m *memLedger) countLocked(matchID int64) int {
	n := 0
	for _, e := range m.entries {
		if e.MatchID == matchID {
			n++
		}
	}
	return n
}

func (m *memLedger) GetByID(_ context.Context, id string) (store.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return store.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m *memLedger) GetForUpdate(ctx context.Context, _ store.Getter, id string) (store.Account, error) {
	return m.GetByID(ctx, id)
}

func (m *memLedger) Debit(_ context.Context, _ store.Getter, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok || account.Balance.LessThan(amount) {
		return decimal.Zero, sql.ErrNoRows
	}
	account.Balance = account.Balance.Sub(amount)
	m.accounts[id] = account
	return account.Balance, nil
}

func (m *memLedger) ResolveAccountID(_ context.Context, _ store.Getter, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessions[sessionID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return id, nil
}

type memMatches struct{ *memLedger }

func (m memMatches) Get(_ context.Context, id int64) (store.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return store.Match{}, sql.ErrNoRows
	}
	return match, nil
}

func (m memMatches) GetForUpdate(ctx context.Context, _ store.Getter, id int64) (store.Match, error) {
	return m.Get(ctx, id)
}

func (m *memLedger) CountByMatch(_ context.Context, _ store.Getter, matchID int64) (int, error) {
	return m.entryCount(matchID), nil
}

func (m *memLedger) ExistsFor(_ context.Context, _ store.Getter, accountID string, matchID int64) (bool, error) {
	return m.pairCount(accountID, matchID) > 0, nil
}

func (m *memLedger) InsertGuarded(_ context.Context, _ store.Getter, id, accountID string, matchID int64, amount decimal.Decimal) (store.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return store.Entry{}, m.insertErr
	}
	if m.countLocked(matchID) >= m.matches[matchID].TotalSeats {
		return store.Entry{}, store.ErrCapacityReached
	}
	for _, e := range m.entries {
		if e.AccountID == accountID && e.MatchID == matchID {
			return store.Entry{}, &pq.Error{Code: "23505"}
		}
	}
	entry := store.Entry{ID: id, AccountID: accountID, MatchID: matchID, AmountPaid: amount, CreatedAt: time.Now()}
	m.entries = append(m.entries, entry)
	return entry, nil
}

// serialRunner runs one transaction at a time and restores the ledger when
// fn fails, standing in for row locks plus rollback.
type serialRunner struct {
	mu     sync.Mutex
	ledger *memLedger
	err    error
}

func (r *serialRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.ledger.snapshot()
	if err := fn(nil); err != nil {
		r.ledger.restore(snap)
		return err
	}
	return nil
}

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubHub struct {
	mu       sync.Mutex
	balances []models.BalanceUpdate
	seats    []models.SeatUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update models.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = append(s.balances, update)
}

func (s *stubHub) BroadcastSeats(update models.SeatUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, update)
}

type stubRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (s *stubRecorder) ObserveAdmission(outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

type stubAuditLogger struct {
	logs []store.AuditInput
	err  error
}

func (s *stubAuditLogger) Log(_ context.Context, _ store.Execer, input store.AuditInput) error {
	if s.err != nil {
		return s.err
	}
	s.logs = append(s.logs, input)
	return nil
}
