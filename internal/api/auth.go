// Package api implements the HTTP surface of the picking planner.
package api

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"pickplan/internal/auth"
)

// AllStores in a principal's store grants access to every store.
const AllStores = "*"

var roleWriters = []string{auth.RolePlanner, auth.RoleAdmin}

type Principal struct {
	StoreID string
	Role    string
}

func (p Principal) CanAccess(storeID string) bool {
	return p.StoreID == AllStores || p.StoreID == storeID
}

type ctxKeyPrincipal struct{}

func principalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(ctxKeyPrincipal{}).(Principal)
	return p
}

// resolvePrincipal reads the caller from a bearer token. Without one, dev
// mode falls back to the X-Store-Id and X-Role headers, defaulting to an
// admin of every store.
func (s *Server) resolvePrincipal(r *http.Request) (Principal, bool) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		pr, err := s.Auth.Verify(tok)
		if err != nil {
			return Principal{}, false
		}
		return Principal{StoreID: pr.StoreID, Role: pr.Role}, true
	}
	if s.Auth.Mode != "dev" {
		return Principal{}, false
	}
	store := r.Header.Get("X-Store-Id")
	if store == "" {
		store = AllStores
	}
	role := strings.ToLower(r.Header.Get("X-Role"))
	if role == "" {
		role = auth.RoleAdmin
	}
	return Principal{StoreID: store, Role: role}, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.resolvePrincipal(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="pickplan"`)
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPrincipal{}, p)))
	})
}

// requireStore rejects callers whose principal is scoped to another store.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !principalFrom(r.Context()).CanAccess(chi.URLParam(r, "storeId")) {
			writeProblem(w, http.StatusForbidden, "Forbidden", "not authorized for this store", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, principalFrom(r.Context()).Role) {
				writeProblem(w, http.StatusForbidden, "Forbidden", strings.Join(roles, " or ")+" required", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
