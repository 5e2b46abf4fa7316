package console

import (
	"github.com/gofiber/fiber/v2"

	"orgs-sync/internal/auth"
)

// SessionResolver loads the session named by :id into the request.
func SessionResolver(manager *SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := manager.Get(c.Params("id"))
		if s == nil {
			return fiber.NewError(fiber.StatusNotFound, "Session not found: "+c.Params("id"))
		}
		c.Locals(sessionKey, s)
		return c.Next()
	}
}

// RegisterRoutes mounts the console API under /api/console. When login is
// non-nil every session route requires an operator token.
func RegisterRoutes(app *fiber.App, h *Handler, login *auth.LoginHandler, jwtSecret string) {
	api := app.Group("/api/console")

	var guard []fiber.Handler
	if login != nil {
		api.Post("/login", login.Login)
		guard = append(guard, auth.Middleware(jwtSecret), auth.RequireRole(auth.RoleOperator))
	}

	sessions := api.Group("/sessions", guard...)
	sessions.Post("", h.CreateSession)

	one := sessions.Group("/:id", SessionResolver(h.manager))
	one.Get("", h.GetSession)
	one.Delete("", h.DeleteSession)
	one.Post("/initialize", h.Initialize)
	one.Post("/entity", h.ChangeEntity)
	one.Post("/search", h.Search)
	one.Post("/next", h.Next)
	one.Post("/previous", h.Previous)
	one.Post("/refresh", h.Refresh)
	one.Post("/rows/:recordId/:action", h.RowAction)
	one.Post("/modal/new", h.NewRecord)
	one.Post("/modal/save", h.SaveRecord)
	one.Post("/modal/close", h.CloseModal)
}
