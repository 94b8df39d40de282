// Package api implements HTTP handlers and helpers for the route planning service.
package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Tenant string
	Role   string // admin, dispatcher, viewer
}

// getPrincipal extracts tenant and role from the bearer token or dev headers.
// - If Authorization: Bearer is present, uses the configured verifier (dev/hmac).
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Tenant: pr.Tenant, Role: pr.Role}
		}
	}
	tenant := r.Header.Get("X-Tenant-Id")
	role := r.Header.Get("X-Role")
	if tenant == "" {
		tenant = "t_demo"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: strings.ToLower(role)}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanDispatch reports whether the principal may trigger optimizations.
func (p Principal) CanDispatch() bool { return p.Role == "admin" || p.Role == "dispatcher" }
