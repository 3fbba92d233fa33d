package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grimstore/grimstore/internal/pkg/session"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// The core token never leaves the server side session, handlers read it from
// the context.
func UserContextMiddleware(c *fiber.Ctx) error {
	token := session.CoreToken(c)
	if token == "" {
		c.Locals(usercontext.ContextKey, usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	userCtx := usercontext.UserContext{
		Token:      token,
		IsLoggedIn: true,
	}
	if profile := session.Profile(c); profile != nil {
		userCtx.UserID = profile.ID
		userCtx.Name = profile.Name
		userCtx.Email = profile.Email
		userCtx.Balance = profile.Balance
		userCtx.IsAdmin = profile.Role == "ADMIN"
	}

	c.Locals(usercontext.ContextKey, userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)
	return c.Next()
}
