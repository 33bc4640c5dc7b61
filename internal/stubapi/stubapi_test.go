package stubapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-client/internal/domain"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	server, err := NewServer("test-secret", "pets123", zap.NewNop())
	require.NoError(t, err)
	return server.App()
}

func login(t *testing.T, app *fiber.App, email, password string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/api/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	body := map[string]json.RawMessage{}
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestLoginIssuesTokenAndIdentity(t *testing.T) {
	app := newTestApp(t)

	resp, body := login(t, app, "seller@example.com", "pets123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var identity domain.Identity
	require.NoError(t, json.Unmarshal(body["user"], &identity))
	assert.Equal(t, domain.RoleSeller, identity.Role)

	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	assert.NotEmpty(t, token)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	app := newTestApp(t)

	resp, _ := login(t, app, "seller@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeWithBearerToken(t *testing.T) {
	app := newTestApp(t)
	_, body := login(t, app, "buyer@example.com", "pets123")

	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))

	req := httptest.NewRequest(http.MethodGet, "/v1/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		User domain.Identity `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, domain.RoleBuyer, me.User.Role)
}

func TestMeWithoutSessionIs401(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/api/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t)
	_, body := login(t, app, "admin@example.com", "pets123")

	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))

	logoutReq := httptest.NewRequest(http.MethodPost, "/v1/api/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(logoutReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	meReq := httptest.NewRequest(http.MethodGet, "/v1/api/auth/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(meReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "a revoked token no longer resolves an identity")
}

func TestLogoutWithoutSessionIs401(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/api/auth/logout", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
