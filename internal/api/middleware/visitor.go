package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// persistentCookieAge is used when carts do not expire. Browsers cap
// cookie lifetimes near 400 days.
const persistentCookieAge = 400 * 24 * time.Hour

type VisitorConfig struct {
	CookieName string
	// TTL matches the cart expiry; zero means a persistent cookie.
	TTL    time.Duration
	Secure bool
}

// Visitor gives every browser a stable anonymous id, stored in a cookie,
// that keys its cart. Missing or malformed ids are replaced.
func Visitor(cfg VisitorConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "cart_id"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = persistentCookieAge
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				if parsed, err := uuid.Parse(cookie.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.New().String()
			}

			// Refresh on every request so the cookie slides with activity.
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure || r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorContextKey, id)))
		})
	}
}

// VisitorID returns the id assigned by Visitor, or "".
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorContextKey).(string)
	return id
}
