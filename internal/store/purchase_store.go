package store

import "context"

// PurchaseStore reads the legacy purchase ledger. Rows are never written
// here; they only block deletes and appear in history and notifications.
type PurchaseStore struct {
	db DB
}

func NewPurchaseStore(db DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

func (s *PurchaseStore) CountByMatch(ctx context.Context, q Getter, matchID int64) (int, error) {
	var count int
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM purchases
		WHERE match_id = $1
	`, matchID)
	return count, err
}

// ListByAccount prices each purchase at the match's entry fee.
func (s *PurchaseStore) ListByAccount(ctx context.Context, accountID string) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT m.id AS match_id, m.game_name, m.match_name, m.time_key,
		       m.entry_fee AS amount, p.created_at
		FROM purchases p
		JOIN matches m ON m.id = p.match_id
		WHERE p.account_id = $1
		ORDER BY p.created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
