// Package verifier reconciles the runtime session with the backend's notion
// of it: one cancellation-safe async operation, invoked by route guards when
// the session is not already confirmed.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/events"
	"github.com/spec-kit/storefront-client/internal/gateway"
	"github.com/spec-kit/storefront-client/internal/observability"
	"github.com/spec-kit/storefront-client/internal/session"
	"github.com/spec-kit/storefront-client/pkg/util/errorutil"
)

// Outcome is how a verification resolved. A failed identity check is the
// expected "visitor is not logged in" signal, reported as a normal outcome,
// never as an error.
type Outcome string

const (
	OutcomeAuthenticated   Outcome = "authenticated"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	// OutcomeSuppressed means the result arrived after its caller stopped
	// caring and was discarded without touching shared state.
	OutcomeSuppressed Outcome = "suppressed"
)

// Verifier runs the identity check against the backend.
type Verifier struct {
	gw         *gateway.Gateway
	sessions   *session.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// New builds a Verifier.
func New(gw *gateway.Gateway, sessions *session.Store, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *Verifier {
	return &Verifier{gw: gw, sessions: sessions, dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// meResponse mirrors GET /v1/api/auth/me.
type meResponse struct {
	User domain.Identity `json:"user"`
}

// Verify reconciles the session store with the backend, for a caller sitting
// at currentPath. alive is the caller's liveness token, captured at
// invocation: once it reports false the result is computed and then
// discarded, so a guard that navigated away can never receive a stale write.
//
// Only one identity check runs at a time; a second caller finding one in
// flight waits for it to resolve instead of duplicating the network call.
func (v *Verifier) Verify(ctx context.Context, currentPath string, alive func() bool) Outcome {
	for {
		gen, started := v.sessions.BeginVerification()
		if !started {
			outcome, settled := v.awaitInFlight(ctx, gen, alive)
			if settled {
				return outcome
			}
			// The in-flight check was abandoned before it landed; take it
			// over rather than guessing its result.
			continue
		}
		return v.check(ctx, currentPath, gen, alive)
	}
}

func (v *Verifier) check(ctx context.Context, currentPath string, gen uint64, alive func() bool) Outcome {
	identity, err := v.fetchIdentity(ctx)

	if !alive() {
		v.sessions.ReleaseVerification(gen)
		return v.suppress(currentPath)
	}

	if err != nil {
		// A network failure reads the same as a rejection: fail closed.
		v.logger.Debug("identity check failed",
			zap.String("path", currentPath),
			zap.String("code", errorutil.ToClientError(err).Code),
			zap.Error(err))
		if !v.sessions.FailVerification(ctx, gen) {
			return v.suppress(currentPath)
		}
		v.metrics.RecordVerification(string(OutcomeUnauthenticated))
		return OutcomeUnauthenticated
	}

	// The in-memory credential may not have been repopulated since the last
	// start; the durable copy is the fallback source.
	credential := v.sessions.Get().Credential
	if credential.Empty() {
		credential = v.sessions.DurableCredential()
	}

	if !v.sessions.CompleteVerification(gen, identity, credential) {
		return v.suppress(currentPath)
	}

	_ = v.dispatcher.Publish(ctx, events.NewSessionVerified(*identity, currentPath))
	v.metrics.RecordVerification(string(OutcomeAuthenticated))
	return OutcomeAuthenticated
}

// awaitInFlight blocks until the verification already in flight resolves,
// then reports the shared result both callers converge on. gen is the
// generation the refused attempt observed. A check that resolves as
// unauthenticated always bumps the generation; a check whose caller went
// away before the result landed releases the loading flag without bumping
// it. The loading flag dropping with the session unauthenticated and the
// generation unmoved therefore means the check was abandoned, not resolved,
// and is reported as settled=false so a live waiter runs the check itself.
func (v *Verifier) awaitInFlight(ctx context.Context, gen uint64, alive func() bool) (Outcome, bool) {
	for {
		// Arm the watch before reading, so a flip between the read and the
		// wait still wakes us.
		changed := v.sessions.Watch()
		state := v.sessions.Get()
		if !state.IsLoading {
			if !alive() {
				return OutcomeSuppressed, true
			}
			if state.IsAuthenticated {
				return OutcomeAuthenticated, true
			}
			if v.sessions.Generation() == gen {
				return "", false
			}
			return OutcomeUnauthenticated, true
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return OutcomeSuppressed, true
		}
	}
}

// suppress records a discarded verification result.
func (v *Verifier) suppress(currentPath string) Outcome {
	v.metrics.RecordStaleWrite()
	v.logger.Debug("verification result discarded",
		zap.String("path", currentPath),
		zap.Error(errorutil.NewStaleWrite()))
	return OutcomeSuppressed
}

// fetchIdentity performs the credential-carrying identity check. The request
// is cookie-scoped as well via the gateway's jar. A 401 here is tolerated at
// the gateway level because "not logged in" is this call's ordinary answer.
func (v *Verifier) fetchIdentity(ctx context.Context) (*domain.Identity, error) {
	req, err := http.NewRequestWithContext(gateway.WithTolerateDenial(ctx), http.MethodGet, v.gw.URL("/v1/api/auth/me"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.gw.Client().Do(req)
	if err != nil {
		return nil, errorutil.NewNetworkFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorutil.NewUnauthenticated(fmt.Sprintf("identity check rejected: status %d", resp.StatusCode))
	}

	var body meResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errorutil.NewNetworkFailure(err)
	}
	if body.User.ID == "" || !body.User.Role.Valid() {
		return nil, errorutil.NewUnauthenticated("identity check returned malformed identity")
	}
	return &body.User, nil
}
