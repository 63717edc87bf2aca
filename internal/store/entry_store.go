package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCapacityReached is returned by InsertGuarded when the seat cap
// rejected the row.
var ErrCapacityReached = errors.New("match capacity reached")

type EntryStore struct {
	db DB
}

type Entry struct {
	ID         string          `db:"id"`
	AccountID  string          `db:"account_id"`
	MatchID    int64           `db:"match_id"`
	AmountPaid decimal.Decimal `db:"amount_paid"`
	CreatedAt  time.Time       `db:"created_at"`
}

// LedgerRow is an entry or purchase joined with its match for history views.
type LedgerRow struct {
	MatchID   int64           `db:"match_id"`
	GameName  string          `db:"game_name"`
	MatchName string          `db:"match_name"`
	TimeKey   string          `db:"time_key"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}

func NewEntryStore(db DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) CountByMatch(ctx context.Context, q Getter, matchID int64) (int, error) {
	var count int
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM match_entries
		WHERE match_id = $1
	`, matchID)
	return count, err
}

func (s *EntryStore) ExistsFor(ctx context.Context, q Getter, accountID string, matchID int64) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM match_entries
			WHERE account_id = $1 AND match_id = $2
		)
	`, accountID, matchID)
	return exists, err
}

// InsertGuarded inserts the entry only while the match is below its seat
// cap. The (account_id, match_id) unique index still applies, so a lost
// race surfaces as a unique violation.
func (s *EntryStore) InsertGuarded(ctx context.Context, tx Getter, id, accountID string, matchID int64, amount decimal.Decimal) (Entry, error) {
	var row Entry
	err := tx.GetContext(ctx, &row, `
		INSERT INTO match_entries (id, account_id, match_id, amount_paid)
		SELECT $1, $2, $3, $4
		WHERE (SELECT COUNT(*) FROM match_entries WHERE match_id = $3)
		    < (SELECT total_seats FROM matches WHERE id = $3)
		RETURNING id, account_id, match_id, amount_paid, created_at
	`, id, accountID, matchID, amount)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrCapacityReached
	}
	if err != nil {
		return Entry{}, err
	}
	return row, nil
}

func (s *EntryStore) ListByAccount(ctx context.Context, accountID string) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT m.id AS match_id, m.game_name, m.match_name, m.time_key,
		       e.amount_paid AS amount, e.created_at
		FROM match_entries e
		JOIN matches m ON m.id = e.match_id
		WHERE e.account_id = $1
		ORDER BY e.created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
