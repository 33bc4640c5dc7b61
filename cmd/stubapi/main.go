package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/config"
	"github.com/spec-kit/storefront-client/internal/observability"
	"github.com/spec-kit/storefront-client/internal/stubapi"
)

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

	server, err := stubapi.NewServer(
		getEnv("STUBAPI_JWT_SECRET", "dev-secret"),
		getEnv("STUBAPI_FIXTURE_PASSWORD", "pets123"),
		logger,
	)
	if err != nil {
		logger.Fatal("failed to build stub server", zap.Error(err))
	}

	app := server.App()
	addr := getEnv("STUBAPI_ADDR", "127.0.0.1:8080")

	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
