package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type AccountStore struct {
	db DB
}

type Account struct {
	ID           string          `db:"id"`
	Email        string          `db:"email"`
	PasswordHash string          `db:"password_hash"`
	Balance      decimal.Decimal `db:"balance"`
	CreatedAt    time.Time       `db:"created_at"`
}

type AccountSummary struct {
	ID           string          `db:"id"`
	Email        string          `db:"email"`
	Balance      decimal.Decimal `db:"balance"`
	TotalMatches int             `db:"total_matches"`
	SessionID    *string         `db:"session_id"`
	CreatedAt    time.Time       `db:"created_at"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, email, passwordHash string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, balance)
		VALUES ($1, $2, $3, 0)
	`, id, email, passwordHash)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, balance, created_at
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, password_hash, balance, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`, email)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// GetForUpdate locks the account row until the surrounding transaction ends.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, email, password_hash, balance, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// Debit subtracts amount only while the balance covers it and returns the
// new balance. sql.ErrNoRows means the guard rejected the write.
func (s *AccountStore) Debit(ctx context.Context, tx Getter, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, `
		UPDATE accounts
		SET balance = balance - $1
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, accountID)
	return balance, err
}

func (s *AccountStore) SetBalanceByEmail(ctx context.Context, tx Getter, email string, balance decimal.Decimal) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		UPDATE accounts
		SET balance = $1
		WHERE lower(email) = lower($2)
		RETURNING id, email, password_hash, balance, created_at
	`, balance, email)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) ListSummaries(ctx context.Context, limit, offset int) ([]AccountSummary, error) {
	var rows []AccountSummary
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.email, a.balance, a.created_at, s.session_id,
		       (SELECT COUNT(*) FROM match_entries e WHERE e.account_id = a.id)
		     + (SELECT COUNT(*) FROM purchases p WHERE p.account_id = a.id) AS total_matches
		FROM accounts a
		LEFT JOIN chat_sessions s ON s.account_id = a.id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
