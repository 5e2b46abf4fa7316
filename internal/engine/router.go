package engine

import "github.com/gofiber/fiber/v2"

// RegisterRecordRoutes mounts the record API. Middleware (token checks) runs
// before every handler.
func RegisterRecordRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	records := app.Group("/api/records", middleware...)

	records.Get("/:entity", h.List)
	records.Post("/:entity", h.Create)
	records.Patch("/:entity", h.Update)
	records.Delete("/:entity", h.Delete)
}
