package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"arena/internal/auth"
)

type contextKey string

const accountIDKey contextKey = "account_id"

func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountIDKey).(string)
	return accountID, ok && accountID != ""
}

// WithAccountID stores an authenticated account id on ctx.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// Auth requires a "Bearer <jwt>" Authorization header.
func Auth(secret string) func(http.Handler) http.Handler {
	return authenticate(secret, func(r *http.Request) (string, string) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return "", "missing authorization header"
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", "invalid authorization header"
		}
		return parts[1], ""
	})
}

// QueryAuth reads the token from a query parameter. Browsers cannot set
// headers on a websocket handshake.
func QueryAuth(secret, param string) func(http.Handler) http.Handler {
	return authenticate(secret, func(r *http.Request) (string, string) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return "", "missing token"
		}
		return token, ""
	})
}

func authenticate(secret string, extract func(*http.Request) (string, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := extract(r)
			if problem != "" {
				writeError(w, http.StatusUnauthorized, problem, "unauthorized")
				return
			}
			claims, err := auth.ParseToken(secret, token)
			if err != nil || claims.AccountID == "" {
				writeError(w, http.StatusUnauthorized, "invalid token", "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), claims.AccountID)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
