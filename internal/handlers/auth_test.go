package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"arena/internal/auth"
	"arena/internal/services"
	"arena/internal/store"

	"github.com/shopspring/decimal"
)

func TestRegisterIssuesToken(t *testing.T) {
	var got services.RegisterRequest
	h := newTestHandler(t, Deps{Accounts: stubAccountService{
		registerFn: func(_ context.Context, req services.RegisterRequest) (store.Account, error) {
			got = req
			return store.Account{ID: "acc-1", Email: req.Email}, nil
		},
	}})

	rr := serve(h, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"long enough"}`, nil)
	expectStatus(t, rr, http.StatusCreated)
	if got.Email != "a@example.com" || got.Password != "long enough" {
		t.Fatalf("unexpected request %+v", got)
	}

	body := decodeBody(t, rr)
	token, _ := body["token"].(string)
	claims, err := auth.ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AccountID != "acc-1" || body["account_id"] != "acc-1" {
		t.Fatalf("unexpected claims %+v body %v", claims, body)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newTestHandler(t, Deps{Accounts: stubAccountService{
		registerFn: func(context.Context, services.RegisterRequest) (store.Account, error) {
			return store.Account{}, services.ErrEmailTaken
		},
	}})
	rr := serve(h, http.MethodPost, "/auth/register", `{"email":"a@example.com","password":"long enough"}`, nil)
	expectStatus(t, rr, http.StatusConflict)
	if code := decodeBody(t, rr)["code"]; code != "email_taken" {
		t.Fatalf("unexpected code %v", code)
	}
}

func TestRegisterRejectsBadPayload(t *testing.T) {
	h := newTestHandler(t, Deps{})
	rr := serve(h, http.MethodPost, "/auth/register", `{"email":`, nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestLoginPassesSession(t *testing.T) {
	var got services.LoginRequest
	h := newTestHandler(t, Deps{Accounts: stubAccountService{
		loginFn: func(_ context.Context, req services.LoginRequest) (store.Account, error) {
			got = req
			if req.Password != "long enough" {
				return store.Account{}, services.ErrInvalidCredentials
			}
			return store.Account{ID: "acc-1", Email: req.Email}, nil
		},
	}})

	rr := serve(h, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"long enough","session_id":"tg:42"}`, nil)
	expectStatus(t, rr, http.StatusOK)
	if got.SessionID != "tg:42" {
		t.Fatalf("session not forwarded: %+v", got)
	}

	rr = serve(h, http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"nope"}`, nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestMeRendersOverview(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(t, Deps{Accounts: stubAccountService{
		myAccountFn: func(_ context.Context, accountID string) (services.AccountOverview, error) {
			if accountID != "acc-1" {
				return services.AccountOverview{}, services.ErrAccountNotFound
			}
			return services.AccountOverview{
				ID:           "acc-1",
				Email:        "a@example.com",
				Balance:      decimal.NewFromInt(70),
				TotalMatches: 1,
				CreatedAt:    created,
				History: []services.HistoryItem{
					{Serial: 1, Kind: services.HistoryEntry, MatchID: 4, GameName: "Free Fire", Amount: decimal.RequireFromString("20.5"), CreatedAt: created},
				},
			}, nil
		},
	}})

	rr := serve(h, http.MethodGet, "/auth/me", "", map[string]string{"Authorization": bearer(t, "acc-1")})
	expectStatus(t, rr, http.StatusOK)
	body := decodeBody(t, rr)
	if body["balance"] != "70.00" {
		t.Fatalf("unexpected balance %v", body["balance"])
	}
	history, _ := body["history"].([]any)
	if len(history) != 1 || history[0].(map[string]any)["amount"] != "20.50" {
		t.Fatalf("unexpected history %v", body["history"])
	}

	rr = serve(h, http.MethodGet, "/auth/me", "", map[string]string{"Authorization": bearer(t, "ghost")})
	expectStatus(t, rr, http.StatusNotFound)

	rr = serve(h, http.MethodGet, "/auth/me", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestLogout(t *testing.T) {
	h := newTestHandler(t, Deps{Accounts: stubAccountService{
		logoutFn: func(_ context.Context, sessionID string) (bool, error) {
			return sessionID == "tg:42", nil
		},
	}})
	rr := serve(h, http.MethodPost, "/auth/logout", `{"session_id":"tg:42"}`, nil)
	expectStatus(t, rr, http.StatusOK)
	if decodeBody(t, rr)["unbound"] != true {
		t.Fatalf("expected unbound session, got %s", rr.Body.String())
	}
}
