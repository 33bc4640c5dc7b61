// Package stubapi is a development backend shaped like the marketplace API
// surface the client core depends on: login, identity check, logout. It
// exists so the demo binary and integration tests have a live server; it is
// not part of the client contract.
package stubapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
	"github.com/spec-kit/storefront-client/internal/observability"
)

const sessionCookie = "token"

// Server wires the stub's routes.
type Server struct {
	accounts *AccountStore
	tokens   *TokenManager
	logger   *zap.Logger
}

// NewServer builds a stub server with one fixture account per role.
func NewServer(secret, fixturePassword string, logger *zap.Logger) (*Server, error) {
	accounts, err := NewAccountStore(fixturePassword)
	if err != nil {
		return nil, err
	}
	return &Server{
		accounts: accounts,
		tokens:   NewTokenManager(secret, time.Hour),
		logger:   logger,
	}, nil
}

// App builds the Fiber app with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(observability.RequestLogger(s.logger))

	api := app.Group("/v1/api")
	api.Post("/auth/login", s.handleLogin)
	api.Get("/auth/me", s.handleMe)
	api.Post("/auth/logout", s.handleLogout)

	return app
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	identity, ok := s.accounts.Authenticate(req.Email, req.Password)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateToken(identity.ID, identity.Role)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issue failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"user": identity, "token": token})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	identity, ok := s.authenticate(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	return c.JSON(fiber.Map{"user": identity})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	identity, ok := s.authenticate(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	s.accounts.Revoke(identity.ID)
	c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: "", MaxAge: -1})
	return c.SendStatus(http.StatusNoContent)
}

// authenticate resolves the caller from the bearer header or, failing that,
// the session cookie.
func (s *Server) authenticate(c *fiber.Ctx) (*domain.Identity, bool) {
	tokenStr := ""
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenStr = parts[1]
		}
	}
	if tokenStr == "" {
		tokenStr = c.Cookies(sessionCookie)
	}
	if tokenStr == "" {
		return nil, false
	}

	claims, err := s.tokens.ParseToken(tokenStr)
	if err != nil {
		return nil, false
	}
	found, ok := s.accounts.Lookup(claims.Subject)
	if !ok {
		return nil, false
	}
	return found, true
}
