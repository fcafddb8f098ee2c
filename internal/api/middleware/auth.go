package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/guard"
)

const AccessTokenCookie = "access_token"

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ExtractToken extracts the session token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	sessionContextKey contextKey = "session"
	visitorContextKey contextKey = "visitor"
)

// SessionVerifier checks a session token.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (auth.Session, error)
}

// OptionalSession adds the verified session to the context when a valid
// token is present, but doesn't require it. Routes that only report the
// caller's state use it instead of RequireAdmin.
func OptionalSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := ExtractToken(r); token != "" {
				if session, err := verifier.Verify(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, &session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin runs the admin guard for capability and only calls next in
// the authenticated-admin state. Rejections carry the redirect target.
func RequireAdmin(g *guard.Guard, capability guard.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Authorize(r.Context(), ExtractToken(r), capability)
			if !d.Allowed() {
				message := "unauthorized"
				if d.State == guard.StateNonAdmin {
					message = "forbidden"
				}
				respondError(w, d.Status(), map[string]string{
					"error":    message,
					"redirect": d.Redirect,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, d.Session)))
		})
	}
}

// GetSession retrieves the verified session from the request context
func GetSession(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*auth.Session)
	return session, ok && session != nil
}

// GetUserID is a helper to get just the user ID from context
func GetUserID(ctx context.Context) string {
	session, ok := GetSession(ctx)
	if !ok {
		return ""
	}
	return session.UserID
}
