package permissions

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/examforge/examforge/internal/platform/httpx"
	"github.com/examforge/examforge/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. Tool checks read
// the session's tool list, which is computed at login and refreshed on
// demand; it may lag behind grants or revokes made mid-session.
type Middleware struct {
	Logger *slog.Logger
}

// RequireSession ensures an authenticated session is present.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.AccountID() == "" {
			httpx.RespondError(w, shared.ErrNoSession)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin ensures the session belongs to an admin account.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.AccountID() == "" {
			httpx.RespondError(w, shared.ErrNoSession)
			return
		}
		if sess.Role() != shared.RoleAdmin {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTool gates a route on access to the named tool. Admins always pass.
func (m Middleware) RequireTool(tool string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.AccountID() == "" {
				httpx.RespondError(w, shared.ErrNoSession)
				return
			}
			if sess.Role() == shared.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			if !slices.Contains(sess.Tools(), tool) {
				if m.Logger != nil {
					m.Logger.Warn("tool access denied",
						slog.String("account", sess.AccountID()),
						slog.String("tool", tool))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
