package store

import (
	"context"
	"database/sql"
	"errors"
)

const (
	RoleManageMatches  = "CanManageMatches"
	RoleManageBalances = "CanManageBalances"
	RoleViewAudit      = "CanViewAudit"
)

type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

// IsAdmin reports whether the account is an admin and whether it is a
// super admin. A missing row is not an error.
func (s *AdminStore) IsAdmin(ctx context.Context, accountID string) (bool, bool, error) {
	var isSuper bool
	err := s.db.GetContext(ctx, &isSuper, `
		SELECT is_super
		FROM admins
		WHERE account_id = $1
	`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, isSuper, nil
}

func (s *AdminStore) HasRole(ctx context.Context, accountID, role string) (bool, error) {
	var granted bool
	err := s.db.GetContext(ctx, &granted, `
		SELECT EXISTS(
			SELECT 1 FROM admin_roles
			WHERE admin_account_id = $1 AND role = $2
		)
	`, accountID, role)
	return granted, err
}

func (s *AdminStore) CreateAdmin(ctx context.Context, tx Execer, accountID string, isSuper bool, createdBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admins (account_id, is_super, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING
	`, accountID, isSuper, createdBy)
	return err
}

func (s *AdminStore) GrantRole(ctx context.Context, tx Execer, adminAccountID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admin_roles (admin_account_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, adminAccountID, role)
	return err
}

// HasAnyAdmin runs on the caller's transaction so first-account bootstrap
// sees a consistent snapshot.
func (s *AdminStore) HasAnyAdmin(ctx context.Context, q Getter) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM admins)`)
	return exists, err
}
