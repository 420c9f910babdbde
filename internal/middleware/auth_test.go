package middleware

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"sharebox/internal/models"
	"sharebox/internal/testutil"
)

func newTestApp(t *testing.T) (*fiber.App, *testutil.MemStore) {
	t.Helper()

	store := testutil.NewMemStore()
	store.AddUser(&models.User{Sub: "alice", Email: "alice@example.com"})
	auth := NewAuthMiddleware(store)

	app := fiber.New()
	sessionMiddleware, _ := session.NewWithStore(session.Config{})
	app.Use(sessionMiddleware)

	app.Post("/login/:sub", func(c fiber.Ctx) error {
		session.FromContext(c).Set("user_sub", c.Params("sub"))
		return c.SendString("ok")
	})
	app.Get("/optional", auth.OptionalAuth, func(c fiber.Ctx) error {
		if user, ok := c.Locals("user").(*models.User); ok {
			return c.SendString(user.Sub)
		}
		return c.SendString("anonymous")
	})
	app.Get("/required", auth.RequireAuth, func(c fiber.Ctx) error {
		return c.SendString(c.Locals("user").(*models.User).Email)
	})

	return app, store
}

func login(t *testing.T, app *fiber.App, sub string) []*http.Cookie {
	t.Helper()
	req, _ := http.NewRequest("POST", "/login/"+sub, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	return resp.Cookies()
}

func get(t *testing.T, app *fiber.App, path string, cookies []*http.Cookie) (int, string) {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestOptionalAuth(t *testing.T) {
	app, _ := newTestApp(t)

	if _, body := get(t, app, "/optional", nil); body != "anonymous" {
		t.Errorf("GET /optional without session = %q, want %q", body, "anonymous")
	}

	cookies := login(t, app, "alice")
	if _, body := get(t, app, "/optional", cookies); body != "alice" {
		t.Errorf("GET /optional with session = %q, want %q", body, "alice")
	}
}

func TestRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	if status, _ := get(t, app, "/required", nil); status != fiber.StatusUnauthorized {
		t.Errorf("GET /required without session status = %d, want %d", status, fiber.StatusUnauthorized)
	}

	cookies := login(t, app, "alice")
	status, body := get(t, app, "/required", cookies)
	if status != fiber.StatusOK || body != "alice@example.com" {
		t.Errorf("GET /required = %d %q, want 200 %q", status, body, "alice@example.com")
	}
}

func TestRequireAuth_UnknownSubject(t *testing.T) {
	app, _ := newTestApp(t)

	cookies := login(t, app, "mallory")
	if status, _ := get(t, app, "/required", cookies); status != fiber.StatusUnauthorized {
		t.Errorf("GET /required for unknown subject status = %d, want %d", status, fiber.StatusUnauthorized)
	}
}

func TestOptionalAuth_LookupErrorKeepsSession(t *testing.T) {
	app, store := newTestApp(t)
	cookies := login(t, app, "alice")

	store.FailOn("GetUserBySub", errors.New("connection refused"))
	if _, body := get(t, app, "/optional", cookies); body != "anonymous" {
		t.Errorf("GET /optional during outage = %q, want %q", body, "anonymous")
	}

	store.FailOn("GetUserBySub", nil)
	if _, body := get(t, app, "/optional", cookies); body != "alice" {
		t.Errorf("GET /optional after outage = %q, want %q", body, "alice")
	}
}

func TestOptionalAuth_UnknownSubjectDropsSession(t *testing.T) {
	app, store := newTestApp(t)
	cookies := login(t, app, "mallory")

	if _, body := get(t, app, "/optional", cookies); body != "anonymous" {
		t.Errorf("GET /optional for unknown subject = %q, want %q", body, "anonymous")
	}

	store.AddUser(&models.User{Sub: "mallory"})
	if _, body := get(t, app, "/optional", cookies); body != "anonymous" {
		t.Errorf("GET /optional after session drop = %q, want %q", body, "anonymous")
	}
}
