package handlers

import (
	"context"

	"arena/internal/entryflow"
	"arena/internal/services"
	"arena/internal/store"

	"github.com/shopspring/decimal"
)

type AccountService interface {
	Register(ctx context.Context, req services.RegisterRequest) (store.Account, error)
	Login(ctx context.Context, req services.LoginRequest) (store.Account, error)
	Logout(ctx context.Context, sessionID string) (bool, error)
	MyAccount(ctx context.Context, accountID string) (services.AccountOverview, error)
	AdminGetBalance(ctx context.Context, email string) (services.AccountOverview, error)
	AdminSetBalance(ctx context.Context, actorID, email string, balance decimal.Decimal) (store.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]store.AccountSummary, error)
}

type AdmissionService interface {
	Enter(ctx context.Context, req services.EnterRequest) (services.EntryReceipt, error)
	CheckEligibility(ctx context.Context, key services.AccountKey, matchID int64) (services.Eligibility, error)
}

type CatalogService interface {
	Get(ctx context.Context, matchID int64) (services.MatchView, error)
	ListToday(ctx context.Context, gameFilter string) ([]services.MatchView, error)
	ListAll(ctx context.Context, limit, offset int) ([]services.MatchView, error)
	Games(ctx context.Context) ([]services.GameCategory, error)
	Create(ctx context.Context, req services.CreateMatchRequest) (store.Match, error)
	Delete(ctx context.Context, actorID string, matchID int64) error
}

type AdminStore interface {
	IsAdmin(ctx context.Context, accountID string) (bool, bool, error)
	HasRole(ctx context.Context, accountID, role string) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, accountID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminAccountID, role string) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, input store.AuditInput) error
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, error)
}

type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (store.Account, error)
}

// EntryFlows is the per-session chat dialogue state.
type EntryFlows interface {
	Start(sessionID string) entryflow.Step
	Submit(ctx context.Context, sessionID, text string) (entryflow.Step, error)
	Cancel(sessionID string) entryflow.Step
}
