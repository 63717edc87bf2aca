package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccountStoreCreateStartsAtZero(t *testing.T) {
	tx := stubTx{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO accounts") || !strings.Contains(query, "VALUES ($1, $2, $3, 0)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[1] != "a@example.com" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	if err := NewAccountStore(stubDB{}).Create(context.Background(), tx, "acc-1", "a@example.com", "hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreGetByID(t *testing.T) {
	store := NewAccountStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*Account) = Account{ID: "acc-1", Balance: decimal.NewFromInt(100)}
			return nil
		},
	})
	account, err := store.GetByID(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-1" || !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected account: %#v", account)
	}
}

func TestAccountStoreGetByIDNotFound(t *testing.T) {
	store := NewAccountStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByID(context.Background(), "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountStoreGetForUpdateLocks(t *testing.T) {
	tx := stubTx{
		getFn: func(_ context.Context, dest any, query string, _ ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("expected FOR UPDATE, got %s", query)
			}
			*dest.(*Account) = Account{ID: "acc-1"}
			return nil
		},
	}
	if _, err := NewAccountStore(stubDB{}).GetForUpdate(context.Background(), tx, "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountStoreDebitIsGuarded(t *testing.T) {
	amount := decimal.NewFromInt(50)
	tx := stubTx{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "balance >= $1") || !strings.Contains(query, "RETURNING balance") {
				t.Fatalf("debit must be guarded: %s", query)
			}
			if !args[0].(decimal.Decimal).Equal(amount) || args[1] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*decimal.Decimal) = decimal.NewFromInt(25)
			return nil
		},
	}
	balance, err := NewAccountStore(stubDB{}).Debit(context.Background(), tx, "acc-1", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("unexpected balance: %s", balance)
	}
}

func TestAccountStoreSetBalanceByEmail(t *testing.T) {
	tx := stubTx{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "UPDATE accounts") || !strings.Contains(query, "lower(email) = lower($2)") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*Account) = Account{ID: "acc-1", Email: "a@example.com", Balance: args[0].(decimal.Decimal)}
			return nil
		},
	}
	account, err := NewAccountStore(stubDB{}).SetBalanceByEmail(context.Background(), tx, "A@example.com", decimal.NewFromInt(75))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected balance: %s", account.Balance)
	}
}

func TestAccountStoreListSummaries(t *testing.T) {
	store := NewAccountStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "total_matches") || args[0] != 20 || args[1] != 0 {
				t.Fatalf("unexpected query: %s %#v", query, args)
			}
			*dest.(*[]AccountSummary) = []AccountSummary{{ID: "acc-1", TotalMatches: 3}}
			return nil
		},
	})
	rows, err := store.ListSummaries(context.Background(), 20, 0)
	if err != nil || len(rows) != 1 || rows[0].TotalMatches != 3 {
		t.Fatalf("unexpected result: %#v %v", rows, err)
	}
}
