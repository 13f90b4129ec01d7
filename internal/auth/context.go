package auth

import (
	"context"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
)

// Scopes and roles understood by the notebook service.
const (
	ScopeRead  = "notebook:read"
	ScopeWrite = "notebook:write"

	RoleAdmin  = "notebook_admin"
	RoleEditor = "notebook_editor"
	RoleViewer = "notebook_viewer"
)

type ctxKey struct{}

// Principal represents an authenticated identity extracted from a JWT.
type Principal struct {
	Sub      string          `json:"sub"`
	Scopes   map[string]bool `json:"scopes"`
	Roles    map[string]bool `json:"roles"`
	ClientID string          `json:"client_id"`
	Issuer   string          `json:"issuer"`
	Email    string          `json:"email"`
}

// WithPrincipal stores a Principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom extracts the Principal from the context. Requests that came
// through the MCP bearer middleware carry it in the SDK token info instead.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	if p, ok := ctx.Value(ctxKey{}).(*Principal); ok {
		return p, true
	}
	if info := sdkauth.TokenInfoFromContext(ctx); info != nil {
		p, ok := info.Extra["principal"].(*Principal)
		return p, ok
	}
	return nil, false
}

func (p *Principal) HasScope(s string) bool {
	return p.Scopes[s]
}

// HasAnyScope returns true if the principal has any of the given scopes.
func (p *Principal) HasAnyScope(scopes ...string) bool {
	for _, s := range scopes {
		if p.Scopes[s] {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool {
	return p.Roles[RoleAdmin]
}

// CanWrite reports whether the principal may save questions. Editors get
// write access from their role even without the scope.
func (p *Principal) CanWrite() bool {
	return p.IsAdmin() || p.Roles[RoleEditor] || p.HasScope(ScopeWrite)
}

func (p *Principal) HasRole(r string) bool {
	return p.Roles[r]
}
