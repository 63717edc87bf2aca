package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"arena/internal/auth"
	"arena/internal/db"
	"arena/internal/models"
	"arena/internal/money"
	"arena/internal/store"
	"arena/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AccountRepository interface {
	Create(ctx context.Context, tx store.Execer, id, email, passwordHash string) error
	GetByID(ctx context.Context, accountID string) (store.Account, error)
	GetByEmail(ctx context.Context, email string) (store.Account, error)
	SetBalanceByEmail(ctx context.Context, tx store.Getter, email string, balance decimal.Decimal) (store.Account, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]store.AccountSummary, error)
}

type SessionBinder interface {
	Bind(ctx context.Context, tx store.Execer, sessionID, accountID string) error
	Unbind(ctx context.Context, sessionID string) (bool, error)
}

type AdminBootstrapper interface {
	HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, accountID string, isSuper bool, createdBy *string) error
}

type HistorySource interface {
	ListByAccount(ctx context.Context, accountID string) ([]store.LedgerRow, error)
}

type AccountService struct {
	txRunner  db.TxRunner
	accounts  AccountRepository
	sessions  SessionBinder
	admins    AdminBootstrapper
	entries   HistorySource
	purchases HistorySource
	audit     AuditLogger
	hub       LiveHub
	logger    *zap.Logger
}

func NewAccountService(txRunner db.TxRunner, accounts AccountRepository, sessions SessionBinder, admins AdminBootstrapper, entries, purchases HistorySource, audit AuditLogger, hub LiveHub, logger *zap.Logger) *AccountService {
	return &AccountService{
		txRunner:  txRunner,
		accounts:  accounts,
		sessions:  sessions,
		admins:    admins,
		entries:   entries,
		purchases: purchases,
		audit:     audit,
		hub:       hub,
		logger:    logger,
	}
}

type RegisterRequest struct {
	Email     string
	Password  string
	RemoteIP  string
	UserAgent string
}

type LoginRequest struct {
	Email     string
	Password  string
	SessionID string
}

const (
	HistoryEntry    = "entry"
	HistoryPurchase = "purchase"
)

type HistoryItem struct {
	Serial    int
	Kind      string
	MatchID   int64
	GameName  string
	MatchName string
	TimeKey   string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type AccountOverview struct {
	ID           string
	Email        string
	Balance      decimal.Decimal
	TotalMatches int
	CreatedAt    time.Time
	History      []HistoryItem
}

// Register creates an account with a zero balance. The first account ever
// registered becomes a super admin.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (store.Account, error) {
	email := strings.TrimSpace(req.Email)
	if err := validator.ValidateEmail(email); err != nil {
		return store.Account{}, err
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		return store.Account{}, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return store.Account{}, err
	}
	account := store.Account{ID: uuid.NewString(), Email: email, Balance: decimal.Zero}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accounts.Create(ctx, tx, account.ID, email, hash); err != nil {
			return err
		}
		hasAdmin, err := s.admins.HasAnyAdmin(ctx, tx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			if err := s.admins.CreateAdmin(ctx, tx, account.ID, true, nil); err != nil {
				return err
			}
		}
		return s.audit.Log(ctx, tx, store.AuditInput{
			ActorID:    account.ID,
			Action:     "register",
			EntityType: "account",
			EntityID:   account.ID,
			Data: map[string]string{
				"ip":         req.RemoteIP,
				"user_agent": req.UserAgent,
			},
		})
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.Account{}, ErrEmailTaken
		}
		return store.Account{}, transient(err)
	}
	s.logger.Info("account registered", zap.String("account_id", account.ID))
	return account, nil
}

// Login verifies credentials. With a session id it also rebinds that chat
// session to the account, evicting whatever either side was bound to.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (store.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if store.IsNotFound(err) {
			return store.Account{}, ErrInvalidCredentials
		}
		return store.Account{}, err
	}
	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		return store.Account{}, ErrInvalidCredentials
	}
	if req.SessionID == "" {
		return account, nil
	}
	if err := validator.ValidateSessionID(req.SessionID); err != nil {
		return store.Account{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.sessions.Bind(ctx, tx, req.SessionID, account.ID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditInput{
			ActorID:    account.ID,
			Action:     "bind_session",
			EntityType: "chat_session",
			EntityID:   req.SessionID,
		})
	})
	if err != nil {
		return store.Account{}, transient(err)
	}
	return account, nil
}

func (s *AccountService) Logout(ctx context.Context, sessionID string) (bool, error) {
	if err := validator.ValidateSessionID(sessionID); err != nil {
		return false, err
	}
	return s.sessions.Unbind(ctx, sessionID)
}

func (s *AccountService) MyAccount(ctx context.Context, accountID string) (AccountOverview, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return AccountOverview{}, notFound(err, ErrAccountNotFound)
	}
	return s.overview(ctx, account)
}

func (s *AccountService) overview(ctx context.Context, account store.Account) (AccountOverview, error) {
	entries, err := s.entries.ListByAccount(ctx, account.ID)
	if err != nil {
		return AccountOverview{}, err
	}
	purchases, err := s.purchases.ListByAccount(ctx, account.ID)
	if err != nil {
		return AccountOverview{}, err
	}
	history := mergeHistory(entries, purchases)
	return AccountOverview{
		ID:           account.ID,
		Email:        account.Email,
		Balance:      account.Balance,
		TotalMatches: len(history),
		CreatedAt:    account.CreatedAt,
		History:      history,
	}, nil
}

// mergeHistory interleaves both ledgers newest first and numbers the
// result from 1.
func mergeHistory(entries, purchases []store.LedgerRow) []HistoryItem {
	items := make([]HistoryItem, 0, len(entries)+len(purchases))
	add := func(kind string, rows []store.LedgerRow) {
		for _, row := range rows {
			items = append(items, HistoryItem{
				Kind:      kind,
				MatchID:   row.MatchID,
				GameName:  row.GameName,
				MatchName: row.MatchName,
				TimeKey:   row.TimeKey,
				Amount:    row.Amount,
				CreatedAt: row.CreatedAt,
			})
		}
	}
	add(HistoryPurchase, purchases)
	add(HistoryEntry, entries)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	for i := range items {
		items[i].Serial = i + 1
	}
	return items
}

func (s *AccountService) AdminGetBalance(ctx context.Context, email string) (AccountOverview, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return AccountOverview{}, notFound(err, ErrAccountNotFound)
	}
	return s.overview(ctx, account)
}

// AdminSetBalance overwrites the balance outright. It does not coordinate
// with in-flight admissions; the last committed write wins.
func (s *AccountService) AdminSetBalance(ctx context.Context, actorID, email string, balance decimal.Decimal) (store.Account, error) {
	if balance.IsNegative() {
		return store.Account{}, ErrInvalidAmount
	}
	var updated store.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.SetBalanceByEmail(ctx, tx, strings.TrimSpace(email), balance)
		if err != nil {
			return notFound(err, ErrAccountNotFound)
		}
		updated = account
		return s.audit.Log(ctx, tx, store.AuditInput{
			ActorID:    actorID,
			Action:     "set_balance",
			EntityType: "account",
			EntityID:   account.ID,
			Data:       map[string]string{"balance": money.Format(balance)},
		})
	})
	if err != nil {
		return store.Account{}, transient(err)
	}
	s.logger.Info("balance set by admin",
		zap.String("actor_id", actorID),
		zap.String("account_id", updated.ID),
		zap.String("balance", money.Format(updated.Balance)),
	)
	s.hub.BroadcastBalance(updated.ID, models.BalanceUpdate{
		AccountID: updated.ID,
		Balance:   money.Format(updated.Balance),
	})
	return updated, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]store.AccountSummary, error) {
	return s.accounts.ListSummaries(ctx, limit, offset)
}
