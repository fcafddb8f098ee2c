package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/readmodel"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrRevokedToken       = errors.New("token has been revoked")
)

const (
	SessionSignedIn  = "signed_in"
	SessionSignedOut = "signed_out"
)

// UserStore looks up accounts and their role documents.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*readmodel.UserReadModel, error)
	GetUserByID(ctx context.Context, id string) (*readmodel.UserReadModel, error)
	GetRole(ctx context.Context, userID string) (string, error)
}

// Revocations remembers signed-out token ids.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Session is a verified identity.
type Session struct {
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionEvent is delivered to subscribers on sign-in and sign-out.
type SessionEvent struct {
	Kind    string
	Session Session
}

// Identity is the storefront's identity provider: credential sign-in,
// token verification, sign-out and session-change notification.
type Identity struct {
	users       UserStore
	jwt         *JWTService
	revocations Revocations
	log         *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(SessionEvent)
}

func NewIdentity(users UserStore, jwt *JWTService, revocations Revocations, log *zap.Logger) *Identity {
	return &Identity{
		users:       users,
		jwt:         jwt,
		revocations: revocations,
		log:         log.Named("auth"),
		subs:        make(map[int]func(SessionEvent)),
	}
}

// SignIn checks credentials and issues a session token. Unknown email,
// wrong password and inactive accounts all yield ErrInvalidCredentials.
func (i *Identity) SignIn(ctx context.Context, email, password string) (string, Session, error) {
	user, err := i.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, readmodel.ErrUserNotFound) {
			return "", Session{}, ErrInvalidCredentials
		}
		return "", Session{}, fmt.Errorf("sign in: %w", err)
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return "", Session{}, ErrInvalidCredentials
	}

	token, claims, err := i.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", Session{}, fmt.Errorf("issue token: %w", err)
	}

	session := sessionFromClaims(claims)
	i.log.Info("signed in", zap.String("uid", session.UserID))
	i.publish(SessionEvent{Kind: SessionSignedIn, Session: session})
	return token, session, nil
}

// Verify validates the token signature, expiry and revocation. A
// revocation lookup failure rejects the token.
func (i *Identity) Verify(ctx context.Context, token string) (Session, error) {
	claims, err := i.jwt.ValidateAccessToken(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := i.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Session{}, ErrRevokedToken
	}
	return sessionFromClaims(claims), nil
}

// SignOut revokes token until its natural expiry. Signing out an already
// invalid token is not an error.
func (i *Identity) SignOut(ctx context.Context, token string) error {
	claims, err := i.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil
	}
	if err := i.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	session := sessionFromClaims(claims)
	i.log.Info("signed out", zap.String("uid", session.UserID))
	i.publish(SessionEvent{Kind: SessionSignedOut, Session: session})
	return nil
}

// Role returns the role on the user's record.
func (i *Identity) Role(ctx context.Context, userID string) (string, error) {
	return i.users.GetRole(ctx, userID)
}

// Profile returns the account behind a session.
func (i *Identity) Profile(ctx context.Context, userID string) (*readmodel.UserReadModel, error) {
	return i.users.GetUserByID(ctx, userID)
}

// Subscribe registers fn for session changes and returns its cancel func.
func (i *Identity) Subscribe(fn func(SessionEvent)) (cancel func()) {
	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.subs[id] = fn
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.subs, id)
			i.mu.Unlock()
		})
	}
}

func (i *Identity) publish(ev SessionEvent) {
	i.mu.RLock()
	subs := make([]func(SessionEvent), 0, len(i.subs))
	for _, fn := range i.subs {
		subs = append(subs, fn)
	}
	i.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func sessionFromClaims(c *Claims) Session {
	s := Session{UserID: c.UserID, Email: c.Email, TokenID: c.ID}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}
