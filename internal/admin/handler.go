package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"orgs-sync/internal/engine"
	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

// Handler serves the metadata bootstrap and the entity definition admin API.
type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	migrator *store.Migrator
	alias    string
}

func NewHandler(s *store.Store, reg *metadata.Registry, mig *store.Migrator, alias string) *Handler {
	return &Handler{store: s, registry: reg, migrator: mig, alias: alias}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	meta := append(append([]fiber.Handler{}, middleware...), h.Meta)
	app.Get("/api/_meta", meta...)

	admin := app.Group("/api/_admin", middleware...)
	admin.Get("/entities", h.ListEntities)
	admin.Get("/entities/:name", h.GetEntity)
	admin.Put("/entities/:name", h.PutEntity)
}

// Meta returns the bootstrap payload a console session starts from.
func (h *Handler) Meta(c *fiber.Ctx) error {
	return c.JSON(h.registry.Bootstrap(h.alias))
}

func (h *Handler) ListEntities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.AllEntities()})
}

func (h *Handler) GetEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	entity := h.registry.GetEntity(name)
	if entity == nil {
		return engine.UnknownEntityError(name)
	}
	return c.JSON(fiber.Map{"data": entity})
}

// PutEntity creates or replaces an entity definition, migrates its table and
// reloads the registry.
func (h *Handler) PutEntity(c *fiber.Ctx) error {
	name := c.Params("name")

	var entity metadata.Entity
	if err := json.Unmarshal(c.Body(), &entity); err != nil {
		return engine.InvalidPayloadError("Invalid JSON body")
	}
	entity.Name = name // ensure name matches URL

	if err := entity.Validate(); err != nil {
		return engine.NewAppError("VALIDATION_FAILED", 422, err.Error())
	}

	existing := h.registry.GetEntity(name)
	if existing != nil && existing.Table != entity.Table {
		return engine.NewAppError("VALIDATION_FAILED", 422,
			fmt.Sprintf("table of %s cannot change from %s to %s", name, existing.Table, entity.Table))
	}

	position := 0
	if existing == nil {
		next, err := h.store.NextEntityPosition(c.Context())
		if err != nil {
			return err
		}
		position = next
	}

	if err := h.store.SaveEntity(c.Context(), &entity, position); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return engine.ConflictError("Another entity already uses table " + entity.Table)
		}
		return err
	}

	if err := h.migrator.Migrate(c.Context(), &entity); err != nil {
		return fmt.Errorf("migrate entity %s: %w", entity.Name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	status := fiber.StatusOK
	if existing == nil {
		status = fiber.StatusCreated
		log.Printf("Entity %s created (table %s)", entity.Name, entity.Table)
	}
	return c.Status(status).JSON(fiber.Map{"data": entity})
}
