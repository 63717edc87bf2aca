package handlers

import (
	"crypto/subtle"
	"net/http"

	"arena/internal/config"
	"arena/internal/db"
	"arena/internal/middleware"
	"arena/internal/store"
	"arena/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Deps struct {
	TxRunner  db.TxRunner
	Accounts  AccountService
	Admission AdmissionService
	Catalog   CatalogService
	Admin     AdminStore
	Audit     AuditStore
	Lookup    AccountLookup
	Flows     EntryFlows
	Hub       *websocket.Hub
	Logger    *zap.Logger
}

type Handler struct {
	txRunner  db.TxRunner
	cfg       config.Config
	accounts  AccountService
	admission AdmissionService
	catalog   CatalogService
	admin     AdminStore
	audit     AuditStore
	lookup    AccountLookup
	flows     EntryFlows
	hub       *websocket.Hub
	upgrader  gorillaws.Upgrader
	logger    *zap.Logger
}

func New(cfg config.Config, deps Deps) *Handler {
	return &Handler{
		txRunner:  deps.TxRunner,
		cfg:       cfg,
		accounts:  deps.Accounts,
		admission: deps.Admission,
		catalog:   deps.Catalog,
		admin:     deps.Admin,
		audit:     deps.Audit,
		lookup:    deps.Lookup,
		flows:     deps.Flows,
		hub:       deps.Hub,
		upgrader:  websocket.NewUpgrader(cfg.Origins()),
		logger:    deps.Logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", botTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(authed).Get("/me", h.Me)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/today", h.ListToday)
		r.Get("/games", h.ListGames)
		r.Get("/{id}", h.GetMatch)
		r.With(authed).Get("/{id}/eligibility", h.Eligibility)
		r.With(authed).Post("/{id}/entries", h.Enter)
	})

	router.Route("/chat/{session}", func(r chi.Router) {
		r.Use(requireBotToken(h.cfg.BotToken))
		r.Post("/entries", h.ChatEnter)
		r.Get("/matches/{id}/eligibility", h.ChatEligibility)
		r.Post("/flow", h.StartFlow)
		r.Post("/flow/input", h.SubmitFlow)
		r.Delete("/flow", h.CancelFlow)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authed)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageMatches)).Get("/matches", h.AdminListMatches)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageMatches)).Post("/matches", h.AdminCreateMatch)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageMatches)).Delete("/matches/{id}", h.AdminDeleteMatch)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageBalances)).Get("/accounts", h.AdminListAccounts)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageBalances)).Get("/balances/{email}", h.AdminGetBalance)
		r.With(middleware.RequireAdmin(h.admin, store.RoleManageBalances)).Put("/balances/{email}", h.AdminSetBalance)
		r.With(middleware.RequireAdmin(h.admin, store.RoleViewAudit)).Get("/audit", h.ListAuditLogs)
		r.With(middleware.RequireSuperAdmin(h.admin)).Post("/promote", h.PromoteAdmin)
		r.With(middleware.RequireSuperAdmin(h.admin)).Post("/roles/grant", h.GrantRole)
	})

	router.With(middleware.QueryAuth(h.cfg.JWTSecret, "token")).Get("/ws/updates", h.WSUpdates)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}

const botTokenHeader = "X-Bot-Token"

// requireBotToken guards the chat gateway routes with a shared secret. An
// unset token closes them.
func requireBotToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(botTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, http.StatusUnauthorized, "invalid bot token", "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
