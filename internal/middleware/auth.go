package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"sharebox/internal/db"
	"sharebox/internal/models"
)

// UserLookup resolves a session's OIDC subject to an account.
type UserLookup interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware loads the signed-in user from the session into c.Locals("user").
type AuthMiddleware struct {
	users UserLookup
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// RequireAuth rejects requests without a signed-in user.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	if m.loadUser(c) == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return c.Next()
}

// OptionalAuth loads the user if authenticated. Anonymous requests pass through.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	m.loadUser(c)
	return c.Next()
}

func (m *AuthMiddleware) loadUser(c fiber.Ctx) *models.User {
	if user, ok := c.Locals("user").(*models.User); ok && user != nil {
		return user
	}

	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}

	sub, ok := sess.Get("user_sub").(string)
	if !ok || sub == "" {
		return nil
	}

	user, err := m.users.GetUserBySub(c.Context(), sub)
	if err != nil {
		// Account is gone; drop the stale session. Other errors keep it.
		if errors.Is(err, db.ErrUserNotFound) {
			sess.Destroy()
		}
		return nil
	}

	c.Locals("user", user)
	return user
}
