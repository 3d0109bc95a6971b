package permission

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// Middleware wires permission checks into HTTP handlers.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require ensures the current user is allowed to perform the action.
// Denial is reported as a bare 403; the reason stays in the logs.
func (m Middleware) Require(action string) func(http.Handler) http.Handler {
	action = NormalizeAction(action)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if m.Engine.Can(r.Context(), userID, action) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireUser only ensures an authenticated session is present.
func (m Middleware) RequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentUserID(r); !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("permission parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

// CurrentUserID extracts the authenticated user from the request, for
// handlers that need the actor beyond the gate itself.
func CurrentUserID(r *http.Request) (int64, bool) {
	return Middleware{}.currentUserID(r)
}
