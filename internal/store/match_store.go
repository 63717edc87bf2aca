package store

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type MatchStore struct {
	db DB
}

type Match struct {
	ID           int64           `db:"id"`
	GameName     string          `db:"game_name"`
	MatchName    string          `db:"match_name"`
	EntryFee     decimal.Decimal `db:"entry_fee"`
	PerKillPoint decimal.Decimal `db:"per_kill_point"`
	FirstPrize   decimal.Decimal `db:"first_prize"`
	SecondPrize  decimal.Decimal `db:"second_prize"`
	ThirdPrize   decimal.Decimal `db:"third_prize"`
	TotalSeats   int             `db:"total_seats"`
	TimeKey      string          `db:"time_key"`
	ScheduledAt  time.Time       `db:"scheduled_at"`
	CreatedAt    time.Time       `db:"created_at"`
}

// MatchWithSeats carries the committed entry count alongside the match.
type MatchWithSeats struct {
	Match
	Occupied int `db:"occupied"`
}

type MatchInput struct {
	GameName     string
	MatchName    string
	EntryFee     decimal.Decimal
	PerKillPoint decimal.Decimal
	FirstPrize   decimal.Decimal
	SecondPrize  decimal.Decimal
	ThirdPrize   decimal.Decimal
	TotalSeats   int
	TimeKey      string
	ScheduledAt  time.Time
}

// Enrollee is one account holding an entry or legacy purchase on a match.
type Enrollee struct {
	MatchID   int64   `db:"match_id"`
	AccountID string  `db:"account_id"`
	Email     string  `db:"email"`
	SessionID *string `db:"session_id"`
}

const matchColumns = `m.id, m.game_name, m.match_name, m.entry_fee, m.per_kill_point,
		       m.first_prize, m.second_prize, m.third_prize, m.total_seats,
		       m.time_key, m.scheduled_at, m.created_at`

func NewMatchStore(db DB) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) Create(ctx context.Context, tx Getter, input MatchInput) (Match, error) {
	var row Match
	err := tx.GetContext(ctx, &row, `
		INSERT INTO matches AS m (game_name, match_name, entry_fee, per_kill_point,
		                          first_prize, second_prize, third_prize, total_seats,
		                          time_key, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+matchColumns,
		input.GameName, input.MatchName, input.EntryFee, input.PerKillPoint,
		input.FirstPrize, input.SecondPrize, input.ThirdPrize, input.TotalSeats,
		input.TimeKey, input.ScheduledAt)
	if err != nil {
		return Match{}, err
	}
	return row, nil
}

func (s *MatchStore) Get(ctx context.Context, matchID int64) (Match, error) {
	var row Match
	err := s.db.GetContext(ctx, &row, `
		SELECT `+matchColumns+`
		FROM matches m
		WHERE m.id = $1
	`, matchID)
	if err != nil {
		return Match{}, err
	}
	return row, nil
}

func (s *MatchStore) GetWithSeats(ctx context.Context, matchID int64) (MatchWithSeats, error) {
	var row MatchWithSeats
	err := s.db.GetContext(ctx, &row, `
		SELECT `+matchColumns+`,
		       (SELECT COUNT(*) FROM match_entries e WHERE e.match_id = m.id) AS occupied
		FROM matches m
		WHERE m.id = $1
	`, matchID)
	if err != nil {
		return MatchWithSeats{}, err
	}
	return row, nil
}

// GetForUpdate locks the match row; concurrent admissions for the same
// match queue behind it.
func (s *MatchStore) GetForUpdate(ctx context.Context, tx Getter, matchID int64) (Match, error) {
	var row Match
	err := tx.GetContext(ctx, &row, `
		SELECT `+matchColumns+`
		FROM matches m
		WHERE m.id = $1
		FOR UPDATE
	`, matchID)
	if err != nil {
		return Match{}, err
	}
	return row, nil
}

func (s *MatchStore) ListBetween(ctx context.Context, from, to time.Time) ([]MatchWithSeats, error) {
	var rows []MatchWithSeats
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+matchColumns+`,
		       (SELECT COUNT(*) FROM match_entries e WHERE e.match_id = m.id) AS occupied
		FROM matches m
		WHERE m.scheduled_at >= $1 AND m.scheduled_at < $2
		ORDER BY m.game_name ASC, m.time_key ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MatchStore) ListAll(ctx context.Context, limit, offset int) ([]MatchWithSeats, error) {
	var rows []MatchWithSeats
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+matchColumns+`,
		       (SELECT COUNT(*) FROM match_entries e WHERE e.match_id = m.id) AS occupied
		FROM matches m
		ORDER BY m.scheduled_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MatchStore) ListGameNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT DISTINCT game_name
		FROM matches
		ORDER BY game_name
	`)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *MatchStore) Delete(ctx context.Context, tx Execer, matchID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MatchStore) FindStartingAt(ctx context.Context, timeKey string) ([]Match, error) {
	var rows []Match
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+matchColumns+`
		FROM matches m
		WHERE m.time_key = $1
		ORDER BY m.id
	`, timeKey)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEnrollees returns every account with an entry or purchase on the
// given matches, joined with its bound chat session when one exists.
func (s *MatchStore) ListEnrollees(ctx context.Context, matchIDs []int64) ([]Enrollee, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	var rows []Enrollee
	err := s.db.SelectContext(ctx, &rows, `
		SELECT x.match_id, a.id AS account_id, a.email, cs.session_id
		FROM (
			SELECT match_id, account_id FROM match_entries
			UNION
			SELECT match_id, account_id FROM purchases
		) x
		JOIN accounts a ON a.id = x.account_id
		LEFT JOIN chat_sessions cs ON cs.account_id = a.id
		WHERE x.match_id = ANY($1)
		ORDER BY x.match_id, a.email
	`, pq.Array(matchIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
