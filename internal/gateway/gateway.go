// Package gateway is the outbound request pipeline for the storefront
// client. Every call to the backend goes through its Transport, which
// attaches the session credential on the way out and watches for
// authorization denials on the way back.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/config"
	"github.com/spec-kit/storefront-client/internal/events"
	"github.com/spec-kit/storefront-client/internal/observability"
	"github.com/spec-kit/storefront-client/internal/policy"
	"github.com/spec-kit/storefront-client/internal/session"
)

// Navigator forces a navigation outside any guard, used for the global
// logout reaction.
type Navigator interface {
	Navigate(path string)
}

type ctxKey int

// tolerateDenialKey marks requests whose 401 must not trigger the global
// logout reaction. Two callers need it: the logout call, which may 401 when
// the session is already gone and must not loop, and the identity check,
// whose 401 is the ordinary "not logged in" answer handled by the verifier.
const tolerateDenialKey ctxKey = 0

// WithTolerateDenial marks ctx so a 401 on the request is left to the caller.
func WithTolerateDenial(ctx context.Context) context.Context {
	return context.WithValue(ctx, tolerateDenialKey, true)
}

func tolerateDenial(ctx context.Context) bool {
	v, _ := ctx.Value(tolerateDenialKey).(bool)
	return v
}

// Transport implements http.RoundTripper. It is installed once at the
// composition root so every request from any part of the app, not just the
// session subsystem, carries the credential and participates in the global
// denial reaction.
type Transport struct {
	base      http.RoundTripper
	sessions  *session.Store
	navigator Navigator
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewTransport wraps base, which defaults to http.DefaultTransport.
func NewTransport(base http.RoundTripper, sessions *session.Store, navigator Navigator, logger *zap.Logger, metrics *observability.Metrics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, sessions: sessions, navigator: navigator, logger: logger, metrics: metrics}
}

// RoundTrip attaches the bearer credential, preferring the runtime copy and
// falling back to the durable mirror for the window after a fresh start. A
// 401 on any response clears the whole session and forces navigation to the
// login route: a denied credential invalidates the session, not one call.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	credential := t.sessions.Get().Credential
	if credential.Empty() {
		credential = t.sessions.DurableCredential()
	}

	req = req.Clone(req.Context())
	if !credential.Empty() {
		req.Header.Set("Authorization", "Bearer "+string(credential))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !tolerateDenial(req.Context()) {
		t.metrics.RecordGatewayDenial()
		t.logger.Info("session denied by backend, logging out",
			zap.String("path", req.URL.Path))
		t.sessions.Clear(req.Context(), events.CauseGatewayDenied)
		t.navigator.Navigate(policy.LoginRoute)
	}

	return resp, nil
}

// Gateway bundles the configured HTTP client with the auth endpoints the
// session subsystem calls directly.
type Gateway struct {
	client    *http.Client
	baseURL   string
	sessions  *session.Store
	navigator Navigator
	logger    *zap.Logger
}

// New builds a Gateway whose client routes through the credential transport.
// The cookie jar carries the backend session cookie alongside the bearer
// header.
func New(cfg config.APIConfig, transport *Transport, logger *zap.Logger) (*Gateway, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("init cookie jar: %w", err)
	}
	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.RequestTimeout(),
	}
	return &Gateway{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		sessions:  transport.sessions,
		navigator: transport.navigator,
		logger:    logger,
	}, nil
}

// Client exposes the shared HTTP client for the rest of the app.
func (g *Gateway) Client() *http.Client {
	return g.client
}

// URL resolves a backend path against the configured base.
func (g *Gateway) URL(path string) string {
	return g.baseURL + path
}

// Logout tells the backend to end the session, then completes client-side
// logout regardless of the outcome. Backend failures, including a 401
// because the session is already gone, are ignored.
func (g *Gateway) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(WithTolerateDenial(ctx), http.MethodPost, g.URL("/v1/api/auth/logout"), nil)
	if err != nil {
		g.logger.Warn("logout request build failed", zap.Error(err))
	} else if resp, err := g.client.Do(req); err != nil {
		g.logger.Warn("logout call failed", zap.Error(err))
	} else {
		resp.Body.Close()
	}

	g.sessions.Clear(ctx, events.CauseLogout)
	g.navigator.Navigate(policy.LoginRoute)
}
