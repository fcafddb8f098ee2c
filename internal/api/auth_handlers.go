package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/api/middleware"
	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/guard"
)

// AuthHandlers handles sign-in, sign-out and session state
type AuthHandlers struct {
	identity      *auth.Identity
	guard         *guard.Guard
	secureCookies bool
	log           *zap.Logger
}

func NewAuthHandlers(identity *auth.Identity, g *guard.Guard, secureCookies bool, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		identity:      identity,
		guard:         g,
		secureCookies: secureCookies,
		log:           log.Named("auth"),
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// SessionResponse is the guard's view of the caller
type SessionResponse struct {
	State    guard.State   `json:"state"`
	Redirect string        `json:"redirect,omitempty"`
	User     *UserResponse `json:"user,omitempty"`
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, session, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	h.setAuthCookie(w, r, token, session.ExpiresAt)
	respondJSON(w, http.StatusOK, map[string]any{
		"user":    UserResponse{ID: session.UserID, Email: session.Email},
		"message": "Login successful",
	})
}

// Logout revokes the current token and clears the cookie
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.ExtractToken(r); token != "" {
		if err := h.identity.SignOut(r.Context(), token); err != nil {
			respondDomainError(w, h.log, err)
			return
		}
	}

	h.clearAuthCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Session reports the guard state for the caller. It always answers 200;
// the state field tells the client where it stands. The route is wrapped
// by OptionalSession.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.GetSession(r.Context())
	d := h.guard.ResolveSession(r.Context(), session)
	resp := SessionResponse{State: d.State, Redirect: d.Redirect}
	if d.Session != nil {
		resp.User = &UserResponse{ID: d.Session.UserID, Email: d.Session.Email, Role: d.Role}
		if u, err := h.identity.Profile(r.Context(), d.Session.UserID); err == nil {
			resp.User.Name = u.Name
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Helper methods

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
