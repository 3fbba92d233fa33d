package router

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/grimstore/grimstore/app/controllers"
	"github.com/grimstore/grimstore/internal/pkg/constants"
	"github.com/grimstore/grimstore/internal/pkg/middleware"
	"github.com/grimstore/grimstore/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerWebsocketRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// registerWebsocketRoutes mounts the browser relays. The upgrade guard
// rejects plain HTTP requests on these paths.
func (h HttpRouter) registerWebsocketRoutes(app *fiber.App) {
	ws := app.Group(constants.WebsocketRoute, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	ws.Get("/orders/:id", websocket.New(controllers.HandleOrderSocket))
	ws.Get("/chat/:sessionID", websocket.New(controllers.HandleChatSocket))
	ws.Get("/lookup", websocket.New(controllers.HandleLookupSocket))
	ws.Get("/admin/chat", websocket.New(controllers.HandleAdminChatSocket))
}
