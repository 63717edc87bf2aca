package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"arena/internal/services"
	"arena/internal/store"

	"github.com/shopspring/decimal"
)

func TestAdminListAccounts(t *testing.T) {
	session := "tg:42"
	h := newTestHandler(t, Deps{Admin: adminWith(store.RoleManageBalances), Accounts: stubAccountService{
		listAccountsFn: func(context.Context, int, int) ([]store.AccountSummary, error) {
			return []store.AccountSummary{
				{ID: "acc-1", Email: "a@example.com", Balance: decimal.NewFromInt(5), TotalMatches: 2, SessionID: &session, CreatedAt: time.Now()},
				{ID: "acc-2", Email: "b@example.com", Balance: decimal.Zero},
			}, nil
		},
	}})

	rr := serve(h, http.MethodGet, "/admin/accounts", "", map[string]string{"Authorization": bearer(t, "acc-admin")})
	expectStatus(t, rr, http.StatusOK)
	want := `"session_id":"tg:42"`
	if body := rr.Body.String(); !strings.Contains(body, want) || !strings.Contains(body, `"balance":"0.00"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestAdminGetBalance(t *testing.T) {
	h := newTestHandler(t, Deps{Admin: adminWith(store.RoleManageBalances), Accounts: stubAccountService{
		adminGetBalanceFn: func(_ context.Context, email string) (services.AccountOverview, error) {
			if email != "a@example.com" {
				return services.AccountOverview{}, services.ErrAccountNotFound
			}
			return services.AccountOverview{ID: "acc-1", Email: email, Balance: decimal.RequireFromString("12.3")}, nil
		},
	}})
	headers := map[string]string{"Authorization": bearer(t, "acc-admin")}

	rr := serve(h, http.MethodGet, "/admin/balances/a@example.com", "", headers)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody(t, rr)["balance"] != "12.30" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
	expectStatus(t, serve(h, http.MethodGet, "/admin/balances/ghost@example.com", "", headers), http.StatusNotFound)
}

func TestAdminSetBalance(t *testing.T) {
	var gotActor, gotEmail string
	var gotBalance decimal.Decimal
	h := newTestHandler(t, Deps{Admin: adminWith(store.RoleManageBalances), Accounts: stubAccountService{
		adminSetBalanceFn: func(_ context.Context, actorID, email string, balance decimal.Decimal) (store.Account, error) {
			gotActor, gotEmail, gotBalance = actorID, email, balance
			return store.Account{ID: "acc-1", Email: email, Balance: balance}, nil
		},
	}})
	headers := map[string]string{"Authorization": bearer(t, "acc-admin")}

	rr := serve(h, http.MethodPut, "/admin/balances/a@example.com", `{"balance":"125.5"}`, headers)
	expectStatus(t, rr, http.StatusOK)
	if gotActor != "acc-admin" || gotEmail != "a@example.com" || gotBalance.String() != "125.5" {
		t.Fatalf("unexpected call actor=%s email=%s balance=%s", gotActor, gotEmail, gotBalance)
	}
	if decodeBody(t, rr)["balance"] != "125.50" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	for _, body := range []string{`{"balance":"-1"}`, `{"balance":"1.234"}`, `{"balance":""}`} {
		expectStatus(t, serve(h, http.MethodPut, "/admin/balances/a@example.com", body, headers), http.StatusBadRequest)
	}
}

func TestBalanceRoutesRequireRole(t *testing.T) {
	h := newTestHandler(t, Deps{Admin: adminWith(store.RoleManageMatches)})
	rr := serve(h, http.MethodPut, "/admin/balances/a@example.com", `{"balance":"1"}`, map[string]string{"Authorization": bearer(t, "acc-admin")})
	expectStatus(t, rr, http.StatusForbidden)
}
