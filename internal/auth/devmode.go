package auth

import (
	"log/slog"
	"net/http"
)

// DevModeMiddleware injects a synthetic admin Principal.
// Use only when AUTH_ENABLED=false (development).
func DevModeMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger.Warn("DEV MODE: authentication disabled, all requests get an admin principal")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithPrincipal(r.Context(), DevPrincipal())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevPrincipal is the identity every request gets in dev mode.
func DevPrincipal() *Principal {
	return &Principal{
		Sub: "dev-user",
		Scopes: map[string]bool{
			"openid":   true,
			ScopeRead:  true,
			ScopeWrite: true,
		},
		Roles: map[string]bool{
			RoleAdmin:  true,
			RoleEditor: true,
			RoleViewer: true,
		},
		ClientID: "dev",
		Issuer:   "dev",
		Email:    "dev@notebook.local",
	}
}
