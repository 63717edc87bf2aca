package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestSessionStoreBindEvictsBothSides(t *testing.T) {
	var queries []string
	tx := stubTx{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			queries = append(queries, query)
			if len(args) != 2 || args[0] != "chat-1" || args[1] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	if err := NewSessionStore(stubDB{}).Bind(context.Background(), tx, "chat-1", "acc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected delete then insert, got %d statements", len(queries))
	}
	if !strings.Contains(queries[0], "session_id = $1 OR account_id = $2") {
		t.Fatalf("unexpected eviction: %s", queries[0])
	}
	if !strings.Contains(queries[1], "INSERT INTO chat_sessions") {
		t.Fatalf("unexpected insert: %s", queries[1])
	}
}

func TestSessionStoreBindStopsOnEvictionError(t *testing.T) {
	calls := 0
	tx := stubTx{
		execFn: func(context.Context, string, ...any) (sql.Result, error) {
			calls++
			return nil, errors.New("boom")
		},
	}
	if err := NewSessionStore(stubDB{}).Bind(context.Background(), tx, "chat-1", "acc-1"); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected insert to be skipped, got %d calls", calls)
	}
}

func TestSessionStoreUnbind(t *testing.T) {
	store := NewSessionStore(stubDB{
		execFn: func(_ context.Context, query string, _ ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM chat_sessions") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 0}, nil
		},
	})
	removed, err := store.Unbind(context.Background(), "chat-1")
	if err != nil || removed {
		t.Fatalf("expected nothing removed, got %v %v", removed, err)
	}
}

func TestSessionStoreResolveAccountID(t *testing.T) {
	q := stubTx{
		getFn: func(_ context.Context, dest any, _ string, args ...any) error {
			if args[0] != "chat-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*string) = "acc-1"
			return nil
		},
	}
	accountID, err := NewSessionStore(stubDB{}).ResolveAccountID(context.Background(), q, "chat-1")
	if err != nil || accountID != "acc-1" {
		t.Fatalf("unexpected result: %q %v", accountID, err)
	}
}
