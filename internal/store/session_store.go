package store

import "context"

// SessionStore binds chat sessions to accounts. A session maps to at most
// one account and an account to at most one session.
type SessionStore struct {
	db DB
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

// Bind evicts any binding held by either side before inserting the new
// pair. Callers run it inside a transaction.
func (s *SessionStore) Bind(ctx context.Context, tx Execer, sessionID, accountID string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM chat_sessions
		WHERE session_id = $1 OR account_id = $2
	`, sessionID, accountID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, account_id)
		VALUES ($1, $2)
	`, sessionID, accountID)
	return err
}

func (s *SessionStore) Unbind(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SessionStore) ResolveAccountID(ctx context.Context, q Getter, sessionID string) (string, error) {
	var accountID string
	err := q.GetContext(ctx, &accountID, `
		SELECT account_id
		FROM chat_sessions
		WHERE session_id = $1
	`, sessionID)
	return accountID, err
}
