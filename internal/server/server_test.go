package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/encryptcookie"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sharebox/internal/archive"
	"sharebox/internal/config"
	"sharebox/internal/handlers"
	"sharebox/internal/models"
	"sharebox/internal/sharing"
	"sharebox/internal/testutil"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *testutil.MemStore) {
	t.Helper()

	store := testutil.NewMemStore()
	blobs := testutil.NewMemBlobs()
	policy := config.DefaultPolicy()
	policy.Passwords.BcryptCost = bcrypt.MinCost

	svc := sharing.NewService(sharing.Deps{
		Store:    store,
		Accounts: store,
		Blobs:    blobs,
	}, policy)

	srv := New(cfg, zap.NewNop(), nil)
	err := srv.RegisterRoutes(t.Context(), Dependencies{
		Service:  svc,
		Streamer: archive.NewStreamer(blobs, nil),
		Users:    store,
		Checks:   map[string]handlers.Pinger{},
		Policy:   policy,
	})
	require.NoError(t, err)
	return srv, store
}

func testConfig() *config.Config {
	return &config.Config{
		Env:           "development",
		BaseURL:       "http://localhost:3000",
		SessionSecret: "test-secret-that-is-long-enough-for-production",
	}
}

func TestRoutes_Probes(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := srv.App.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestRoutes_AnonymousShareFlow(t *testing.T) {
	srv, store := newTestServer(t, testConfig())

	req := httptest.NewRequest("POST", "/shares", bytes.NewBufferString(`{"durationHours": 2, "title": "Trip photos"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.CreateShareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, sharing.IsWellFormedLink(created.ShareLink))
	assert.Equal(t, 1, store.ShareCount())

	req = httptest.NewRequest("POST", "/shares/"+created.ShareLink+"/files", bytes.NewBufferString(`{"filename": "a.txt", "size": 5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = srv.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = srv.App.Test(httptest.NewRequest("GET", "/shares/"+created.ShareLink+"/files", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutes_RequireSignIn(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/me", "/me/shares"} {
		resp, err := srv.App.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}

	// Deleting without a session is an ownership failure, not a crash.
	req := httptest.NewRequest("DELETE", "/shares/Abcdefgh2345", nil)
	resp, err := srv.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRoutes_GlobalRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 2
	srv, _ := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := srv.App.Test(httptest.NewRequest("GET", "/shares/Abcdefgh2345/files", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusNotFound, fiber.StatusNotFound, fiber.StatusTooManyRequests}, codes)

	// Probes are exempt.
	resp, err := srv.App.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestBuildTLSConfig(t *testing.T) {
	tc, err := buildTLSConfig(&config.Config{TLSEnabled: true})
	require.NoError(t, err)
	assert.Nil(t, tc.ClientCAs)

	_, err = buildTLSConfig(&config.Config{TLSEnabled: true, TLSCAFile: "does-not-exist.pem"})
	assert.Error(t, err)
}

// Replaying encrypted session cookies must keep the signed-in user.
func TestEncryptCookieSessionRoundTrip(t *testing.T) {
	app := fiber.New()
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key: deriveEncryptionKey("test-secret-that-is-long-enough-for-production"),
	}))
	sessionMiddleware, _ := session.NewWithStore(session.Config{
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	app.Use(sessionMiddleware)

	app.Post("/session-set", func(c fiber.Ctx) error {
		session.FromContext(c).Set("user_sub", "alice")
		return c.SendString("ok")
	})
	app.Get("/session-get", func(c fiber.Ctx) error {
		val, _ := session.FromContext(c).Get("user_sub").(string)
		return c.SendString(val)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/session-set", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/session-get", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, "alice", string(body), "round trip %d", i+1)

		if next := resp.Cookies(); len(next) > 0 {
			cookies = next
		}
	}
}
