// Package guard gates protected pages. A Guard wraps one protected route;
// each navigation to it produces a Mount, a little state machine that reads
// the session, triggers verification when the session is unconfirmed, and
// settles on rendering the page or redirecting the visitor.
package guard

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/observability"
	"github.com/spec-kit/storefront-client/internal/policy"
	"github.com/spec-kit/storefront-client/internal/session"
	"github.com/spec-kit/storefront-client/internal/verifier"
	"github.com/spec-kit/storefront-client/pkg/util/errorutil"
)

// Phase is the guard's externally visible state. While CHECKING the caller
// shows a neutral loading indicator: never the protected content and never a
// redirect, so a legitimate session restore does not flicker through login.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseChecking    Phase = "CHECKING"
	PhaseAuthorized  Phase = "AUTHORIZED"
	PhaseRedirecting Phase = "REDIRECTING"
)

// Navigator performs the redirect decided by a guard.
type Navigator interface {
	Navigate(path string)
}

// Config bundles guard dependencies.
type Config struct {
	Sessions  *session.Store
	Verifier  *verifier.Verifier
	Navigator Navigator
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	// AllowedRoles optionally narrows access beyond the global route table:
	// when set, the identity's role must also be a member of this set.
	AllowedRoles []domain.Role
}

// Guard protects one route.
type Guard struct {
	cfg     Config
	allowed map[domain.Role]struct{}
}

// New builds a guard.
func New(cfg Config) *Guard {
	var allowed map[domain.Role]struct{}
	if len(cfg.AllowedRoles) > 0 {
		allowed = make(map[domain.Role]struct{}, len(cfg.AllowedRoles))
		for _, role := range cfg.AllowedRoles {
			allowed[role] = struct{}{}
		}
	}
	return &Guard{cfg: cfg, allowed: allowed}
}

// Mount is one navigation onto the guarded route. REDIRECTING is terminal
// for a mount; a fresh navigation starts a new one at INIT.
type Mount struct {
	guard *Guard
	path  string

	mu        sync.Mutex
	phase     Phase
	unmounted bool
}

// Mount starts a navigation to path.
func (g *Guard) Mount(path string) *Mount {
	return &Mount{guard: g, path: path, phase: PhaseInit}
}

// Phase returns the mount's current phase.
func (m *Mount) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Unmount records that navigation tore this mount down. Any verification
// still in flight for it computes its result and then discards it.
func (m *Mount) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmounted = true
}

func (m *Mount) alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unmounted
}

func (m *Mount) setPhase(phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

// Resolve runs the mount's decision to completion: authorized synchronously
// when the session is already confirmed, otherwise through CHECKING and a
// verification. It returns the settled phase; for an unmounted caller the
// phase is left as-is and the stale result is dropped.
func (m *Mount) Resolve(ctx context.Context) Phase {
	state := m.guard.cfg.Sessions.Get()
	if state.IsAuthenticated && !state.IsLoading {
		return m.decide(state)
	}

	m.setPhase(PhaseChecking)
	outcome := m.guard.cfg.Verifier.Verify(ctx, m.path, m.alive)
	if outcome == verifier.OutcomeSuppressed {
		return m.Phase()
	}
	return m.decide(m.guard.cfg.Sessions.Get())
}

// Run resolves the mount and then keeps it honest: the decision re-runs
// whenever the authentication flag flips, and only then, until the mount is
// torn down or ctx ends. A path change is a new mount, not a re-run.
func (m *Mount) Run(ctx context.Context) {
	phase := m.Resolve(ctx)
	if phase == PhaseRedirecting {
		return
	}
	lastAuth := m.guard.cfg.Sessions.Get().IsAuthenticated

	for m.alive() {
		changed := m.guard.cfg.Sessions.Watch()
		if auth := m.guard.cfg.Sessions.Get().IsAuthenticated; auth != lastAuth {
			lastAuth = auth
			if m.Resolve(ctx) == PhaseRedirecting {
				return
			}
			continue
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

// decide applies the role policy to a settled session state.
func (m *Mount) decide(state session.State) Phase {
	if !m.alive() {
		return m.Phase()
	}

	if !state.IsAuthenticated || state.Identity == nil {
		// Carry the requested path so the visitor lands back here after
		// authenticating.
		target := policy.LoginRoute + "?redirect=" + url.QueryEscape(m.path)
		return m.redirect(target, errorutil.NewUnauthenticated("no confirmed session"))
	}

	role := state.Identity.Role
	if !policy.IsAllowed(role, m.path) || !m.guard.roleAllowed(role) {
		// Wrong role is not a login problem; send them somewhere they are
		// allowed to be.
		return m.redirect(policy.DefaultRouteFor(role), errorutil.NewRoleDenied(string(role)+" cannot view "+m.path))
	}

	m.setPhase(PhaseAuthorized)
	return PhaseAuthorized
}

func (m *Mount) redirect(target string, cause error) Phase {
	m.setPhase(PhaseRedirecting)
	m.guard.cfg.Metrics.RecordRedirect(target)
	m.guard.cfg.Logger.Debug("navigation denied",
		zap.String("path", m.path),
		zap.String("target", target),
		zap.String("code", errorutil.ToClientError(cause).Code),
		zap.Error(cause),
	)
	m.guard.cfg.Navigator.Navigate(target)
	return PhaseRedirecting
}

func (g *Guard) roleAllowed(role domain.Role) bool {
	if g.allowed == nil {
		return true
	}
	_, ok := g.allowed[role]
	return ok
}
