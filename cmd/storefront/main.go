// The storefront binary is the composition root for the client core. It
// wires the session store, gateway, verifier, and guards together and walks
// a short demo navigation: a protected page while logged out, a login
// against the backend, then the same page again.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/config"
	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/events"
	"github.com/spec-kit/storefront-client/internal/gateway"
	"github.com/spec-kit/storefront-client/internal/guard"
	"github.com/spec-kit/storefront-client/internal/observability"
	"github.com/spec-kit/storefront-client/internal/policy"
	"github.com/spec-kit/storefront-client/internal/session"
	"github.com/spec-kit/storefront-client/internal/verifier"
)

// historyNavigator is the demo's navigation sink: it just records where the
// subsystem sent the visitor.
type historyNavigator struct {
	logger  *zap.Logger
	current string
}

func (n *historyNavigator) Navigate(path string) {
	n.current = path
	n.logger.Info("navigated", zap.String("path", path))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := policy.Validate(); err != nil {
		logger.Fatal("route policy misconfigured", zap.Error(err))
	}

	durable, err := newDurableStore(cfg)
	if err != nil {
		logger.Fatal("failed to init durable session store", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	sessions := session.NewStore(durable, dispatcher, logger)
	sessions.Restore()

	navigator := &historyNavigator{logger: logger, current: "/"}
	transport := gateway.NewTransport(nil, sessions, navigator, logger, metrics)
	gw, err := gateway.New(cfg.API, transport, logger)
	if err != nil {
		logger.Fatal("failed to init gateway", zap.Error(err))
	}
	check := verifier.New(gw, sessions, dispatcher, logger, metrics)

	dispatcher.Subscribe(events.EventSessionInvalidated, func(_ context.Context, ev events.Event) error {
		logger.Info("session invalidated", zap.Any("payload", ev.Payload))
		return nil
	})

	sellerGuard := guard.New(guard.Config{
		Sessions:     sessions,
		Verifier:     check,
		Navigator:    navigator,
		Logger:       logger,
		Metrics:      metrics,
		AllowedRoles: []domain.Role{domain.RoleSeller},
	})

	ctx := context.Background()
	const page = "/seller/dashboard"

	// First visit: no session yet, so the guard verifies and redirects.
	mount := sellerGuard.Mount(page)
	logger.Info("visit resolved",
		zap.String("path", page),
		zap.String("phase", string(mount.Resolve(ctx))),
		zap.String("landed_on", navigator.current))

	if err := login(ctx, gw, sessions); err != nil {
		logger.Warn("demo login skipped", zap.Error(err))
		return
	}

	// Second visit: the session is confirmed, the guard decides synchronously.
	mount = sellerGuard.Mount(page)
	logger.Info("visit resolved",
		zap.String("path", page),
		zap.String("phase", string(mount.Resolve(ctx))),
		zap.String("landed_on", navigator.current))

	gw.Logout(ctx)
	logger.Info("demo finished", zap.String("landed_on", navigator.current))
}

// login authenticates the seller fixture account against the backend and
// persists the session the way a login screen would.
func login(ctx context.Context, gw *gateway.Gateway, sessions *session.Store) error {
	payload, _ := json.Marshal(map[string]string{
		"email":    getEnv("DEMO_EMAIL", "seller@example.com"),
		"password": getEnv("DEMO_PASSWORD", "pets123"),
	})

	req, err := http.NewRequestWithContext(gateway.WithTolerateDenial(ctx), http.MethodPost, gw.URL("/v1/api/auth/login"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected: status %d", resp.StatusCode)
	}

	var body struct {
		User  domain.Identity   `json:"user"`
		Token domain.Credential `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	sessions.Persist(&body.User, body.Token)
	return nil
}

func newDurableStore(cfg *config.Config) (session.DurableStore, error) {
	if cfg.Session.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return session.NewRedisStore(client, cfg.Session.RedisKey), nil
	}
	return session.NewFileStore(cfg.Session.Dir)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
