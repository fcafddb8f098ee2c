package guard

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dearher/bagstore/internal/auth"
	"github.com/dearher/bagstore/internal/readmodel"
)

// State is where a request sits in the admin guard's lifecycle.
type State string

const (
	StateLoading       State = "loading"
	StateAnonymous     State = "anonymous"
	StateNonAdmin      State = "authenticated-non-admin"
	StateAuthenticated State = "authenticated-admin"
)

type event int

const (
	eventNoSession event = iota
	eventRoleAdmin
	eventRoleOther
)

// transitions is the whole machine. Every request starts in loading and
// takes exactly one step to a terminal state.
var transitions = map[State]map[event]State{
	StateLoading: {
		eventNoSession: StateAnonymous,
		eventRoleAdmin: StateAuthenticated,
		eventRoleOther: StateNonAdmin,
	},
}

func step(from State, ev event) State {
	if to, ok := transitions[from][ev]; ok {
		return to
	}
	return from
}

// Decision is the outcome of resolving a request.
type Decision struct {
	State    State
	Session  *auth.Session
	Role     string
	Redirect string
}

// Allowed reports whether the guarded handler may run.
func (d Decision) Allowed() bool {
	return d.State == StateAuthenticated
}

// Status is the HTTP status a rejected request is answered with.
func (d Decision) Status() int {
	switch d.State {
	case StateAuthenticated:
		return http.StatusOK
	case StateNonAdmin:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// Identity is the part of the identity provider the guard needs.
type Identity interface {
	Verify(ctx context.Context, token string) (auth.Session, error)
	Role(ctx context.Context, userID string) (string, error)
}

type Guard struct {
	identity     Identity
	capabilities *Capabilities
	log          *zap.Logger
	observers    []func(State)
}

func New(identity Identity, capabilities *Capabilities, log *zap.Logger) *Guard {
	return &Guard{identity: identity, capabilities: capabilities, log: log.Named("guard")}
}

// OnDecision registers fn to see every terminal state.
func (g *Guard) OnDecision(fn func(State)) {
	g.observers = append(g.observers, fn)
}

// Resolve runs the machine for one request. An unverifiable token is
// anonymous; a role lookup failure is non-admin.
func (g *Guard) Resolve(ctx context.Context, token string) Decision {
	d := Decision{State: StateLoading}

	if token == "" {
		return g.finish(d, eventNoSession)
	}
	session, err := g.identity.Verify(ctx, token)
	if err != nil {
		g.log.Debug("session rejected", zap.Error(err))
		return g.finish(d, eventNoSession)
	}
	return g.ResolveSession(ctx, &session)
}

// ResolveSession runs the machine for a session that was already
// verified. A nil session is anonymous.
func (g *Guard) ResolveSession(ctx context.Context, session *auth.Session) Decision {
	d := Decision{State: StateLoading}
	if session == nil {
		return g.finish(d, eventNoSession)
	}
	d.Session = session

	role, err := g.identity.Role(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, readmodel.ErrUserNotFound) {
			g.log.Warn("role lookup failed", zap.String("uid", session.UserID), zap.Error(err))
		}
		return g.finish(d, eventRoleOther)
	}
	d.Role = role
	if role != readmodel.RoleAdmin {
		return g.finish(d, eventRoleOther)
	}
	return g.finish(d, eventRoleAdmin)
}

// Authorize resolves the request and then checks capability for the
// resolved role. A denied capability demotes the decision to non-admin.
func (g *Guard) Authorize(ctx context.Context, token string, capability Capability) Decision {
	d := g.Resolve(ctx, token)
	if !d.Allowed() {
		return d
	}
	ok, err := g.capabilities.Allowed(d.Role, capability)
	if err != nil || !ok {
		g.log.Warn("capability denied",
			zap.String("role", d.Role),
			zap.String("capability", string(capability)),
			zap.Error(err),
		)
		d.State = StateNonAdmin
		d.Redirect = "/"
	}
	return d
}

func (g *Guard) finish(d Decision, ev event) Decision {
	d.State = step(d.State, ev)
	switch d.State {
	case StateAnonymous:
		d.Redirect = "/login"
	case StateNonAdmin:
		d.Redirect = "/"
	}
	for _, fn := range g.observers {
		fn(d.State)
	}
	return d
}
