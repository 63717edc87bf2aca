package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arena/internal/auth"
	"arena/internal/config"
	"arena/internal/entryflow"
	"arena/internal/services"
	"arena/internal/store"
	"arena/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	testSecret   = "secret"
	testBotToken = "bot-token"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubAccountService struct {
	registerFn        func(ctx context.Context, req services.RegisterRequest) (store.Account, error)
	loginFn           func(ctx context.Context, req services.LoginRequest) (store.Account, error)
	logoutFn          func(ctx context.Context, sessionID string) (bool, error)
	myAccountFn       func(ctx context.Context, accountID string) (services.AccountOverview, error)
	adminGetBalanceFn func(ctx context.Context, email string) (services.AccountOverview, error)
	adminSetBalanceFn func(ctx context.Context, actorID, email string, balance decimal.Decimal) (store.Account, error)
	listAccountsFn    func(ctx context.Context, limit, offset int) ([]store.AccountSummary, error)
}

func (s stubAccountService) Register(ctx context.Context, req services.RegisterRequest) (store.Account, error) {
	return s.registerFn(ctx, req)
}

func (s stubAccountService) Login(ctx context.Context, req services.LoginRequest) (store.Account, error) {
	return s.loginFn(ctx, req)
}

func (s stubAccountService) Logout(ctx context.Context, sessionID string) (bool, error) {
	return s.logoutFn(ctx, sessionID)
}

func (s stubAccountService) MyAccount(ctx context.Context, accountID string) (services.AccountOverview, error) {
	return s.myAccountFn(ctx, accountID)
}

func (s stubAccountService) AdminGetBalance(ctx context.Context, email string) (services.AccountOverview, error) {
	return s.adminGetBalanceFn(ctx, email)
}

func (s stubAccountService) AdminSetBalance(ctx context.Context, actorID, email string, balance decimal.Decimal) (store.Account, error) {
	return s.adminSetBalanceFn(ctx, actorID, email, balance)
}

func (s stubAccountService) ListAccounts(ctx context.Context, limit, offset int) ([]store.AccountSummary, error) {
	return s.listAccountsFn(ctx, limit, offset)
}

type stubAdmission struct {
	enterFn       func(ctx context.Context, req services.EnterRequest) (services.EntryReceipt, error)
	eligibilityFn func(ctx context.Context, key services.AccountKey, matchID int64) (services.Eligibility, error)
}

func (s stubAdmission) Enter(ctx context.Context, req services.EnterRequest) (services.EntryReceipt, error) {
	return s.enterFn(ctx, req)
}

func (s stubAdmission) CheckEligibility(ctx context.Context, key services.AccountKey, matchID int64) (services.Eligibility, error) {
	return s.eligibilityFn(ctx, key, matchID)
}

type stubCatalog struct {
	getFn       func(ctx context.Context, matchID int64) (services.MatchView, error)
	listTodayFn func(ctx context.Context, gameFilter string) ([]services.MatchView, error)
	listAllFn   func(ctx context.Context, limit, offset int) ([]services.MatchView, error)
	gamesFn     func(ctx context.Context) ([]services.GameCategory, error)
	createFn    func(ctx context.Context, req services.CreateMatchRequest) (store.Match, error)
	deleteFn    func(ctx context.Context, actorID string, matchID int64) error
}

func (s stubCatalog) Get(ctx context.Context, matchID int64) (services.MatchView, error) {
	return s.getFn(ctx, matchID)
}

func (s stubCatalog) ListToday(ctx context.Context, gameFilter string) ([]services.MatchView, error) {
	return s.listTodayFn(ctx, gameFilter)
}

func (s stubCatalog) ListAll(ctx context.Context, limit, offset int) ([]services.MatchView, error) {
	return s.listAllFn(ctx, limit, offset)
}

func (s stubCatalog) Games(ctx context.Context) ([]services.GameCategory, error) {
	return s.gamesFn(ctx)
}

func (s stubCatalog) Create(ctx context.Context, req services.CreateMatchRequest) (store.Match, error) {
	return s.createFn(ctx, req)
}

func (s stubCatalog) Delete(ctx context.Context, actorID string, matchID int64) error {
	return s.deleteFn(ctx, actorID, matchID)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, accountID string) (bool, bool, error)
	hasRoleFn     func(ctx context.Context, accountID, role string) (bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, accountID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminAccountID, role string) error
}

func (s stubAdminStore) IsAdmin(ctx context.Context, accountID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, accountID)
}

func (s stubAdminStore) HasRole(ctx context.Context, accountID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, accountID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, accountID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, accountID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminAccountID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminAccountID, role)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, input store.AuditInput) error
	listFn func(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, input store.AuditInput) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, input)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubLookup struct {
	getByEmailFn func(ctx context.Context, email string) (store.Account, error)
}

func (s stubLookup) GetByEmail(ctx context.Context, email string) (store.Account, error) {
	return s.getByEmailFn(ctx, email)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		JWTSecret:      testSecret,
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		BotToken:       testBotToken,
	}
}

// newTestHandler fills unset plumbing (tx runner, admin, audit, flows, hub,
// logger) with in-memory defaults.
func newTestHandler(t *testing.T, deps Deps) *Handler {
	t.Helper()
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Admin == nil {
		deps.Admin = stubAdminStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Flows == nil {
		deps.Flows = entryflow.NewRegistry(deps.Admission)
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub(zap.NewNop())
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return New(testConfig(), deps)
}

func bearer(t *testing.T, accountID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, accountID, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + token
}

// serve routes one request through the full router.
func serve(h *Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}
