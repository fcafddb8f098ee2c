package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/guard"
	"github.com/dearher/bagstore/internal/readmodel"
)

type stubIdentity struct {
	sessions map[string]auth.Session
	roles    map[string]string
}

func (s stubIdentity) Verify(_ context.Context, token string) (auth.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return session, nil
}

func (s stubIdentity) Role(_ context.Context, uid string) (string, error) {
	role, ok := s.roles[uid]
	if !ok {
		return "", readmodel.ErrUserNotFound
	}
	return role, nil
}

func newTestIdentity() stubIdentity {
	return stubIdentity{
		sessions: map[string]auth.Session{
			"admin-token":    {UserID: "u-admin", Email: "owner@dearher.pk"},
			"customer-token": {UserID: "u-customer"},
		},
		roles: map[string]string{"u-admin": readmodel.RoleAdmin, "u-customer": "customer"},
	}
}

func newTestGuard(t *testing.T) *guard.Guard {
	t.Helper()
	caps, err := guard.NewCapabilities()
	require.NoError(t, err)
	return guard.New(newTestIdentity(), caps, zap.NewNop())
}

// ============================================
// ExtractToken Tests
// ============================================

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"none", func(r *http.Request) {}, ""},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, "abc"},
		{"basic header ignored", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"}) }, "from-cookie"},
		{"cookie wins over header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		}, "from-cookie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.want, ExtractToken(req))
		})
	}
}

// ============================================
// OptionalSession Tests
// ============================================

func TestOptionalSession(t *testing.T) {
	var gotUID string
	handler := OptionalSession(newTestIdentity())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-customer", gotUID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotUID)
}

// ============================================
// RequireAdmin Tests
// ============================================

func TestRequireAdmin(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name         string
		token        string
		wantStatus   int
		wantRedirect string
		wantCalled   bool
	}{
		{"no token", "", http.StatusUnauthorized, "/login", false},
		{"invalid token", "forged", http.StatusUnauthorized, "/login", false},
		{"customer", "customer-token", http.StatusForbidden, "/", false},
		{"admin", "admin-token", http.StatusOK, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var uid string
			handler := RequireAdmin(g, guard.CatalogWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				uid = GetUserID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if !tt.wantCalled {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantRedirect, body["redirect"])
				return
			}
			assert.Equal(t, "u-admin", uid)
		})
	}
}

// ============================================
// Visitor Tests
// ============================================

func TestVisitor_AssignsAndKeepsID(t *testing.T) {
	var seen string
	handler := Visitor(VisitorConfig{CookieName: "cart_id", TTL: time.Hour})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = VisitorID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	first := seen
	require.NotEmpty(t, first)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, first, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "cart_id", Value: first})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, first, seen)
}

func TestVisitor_ZeroTTLGivesPersistentCookie(t *testing.T) {
	handler := Visitor(VisitorConfig{CookieName: "cart_id"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, int((400 * 24 * time.Hour).Seconds()), cookies[0].MaxAge)
}

func TestVisitor_ReplacesMalformedID(t *testing.T) {
	var seen string
	handler := Visitor(VisitorConfig{CookieName: "cart_id", TTL: time.Hour})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = VisitorID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "cart_id", Value: "../../etc"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, seen, 36)
}

// ============================================
// Logging Tests
// ============================================

func TestLogging_ReportsStatus(t *testing.T) {
	var method string
	var status int
	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		Logging(zap.NewNop(), func(m string, s int, _ float64) { method, status = m, s }),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/x", nil))

	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, http.StatusTeapot, status)
}

func TestRecover(t *testing.T) {
	handler := Recover(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
