package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"orgs-sync/internal/metadata"
	"orgs-sync/internal/store"
)

// Handler serves the record API a console talks to. Every success body is a
// JSON array of records.
type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	maxLimit int
}

func NewHandler(s *store.Store, reg *metadata.Registry, maxLimit int) *Handler {
	return &Handler{store: s, registry: reg, maxLimit: maxLimit}
}

// List handles GET /api/records/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	plan, err := ParseListParams(c, entity, h.maxLimit)
	if err != nil {
		return err
	}

	qr := BuildSelectSQL(plan, h.store.Dialect)
	rows, err := store.QueryRows(c.Context(), h.store.DB, qr.SQL, qr.Params...)
	if err != nil {
		return fmt.Errorf("list %s: %w", entity.Name, err)
	}
	if h.store.Dialect.NeedsBoolFix() {
		store.NormalizeBooleans(rows, boolFields(entity))
	}

	return c.JSON(rows)
}

// Create handles POST /api/records/:entity with a one-element array body.
func (h *Handler) Create(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	body, err := parsePayload(c.Body())
	if err != nil {
		return err
	}

	plan, validationErrs := PlanWrite(entity, body, "")
	if len(validationErrs) > 0 {
		return ValidationError(validationErrs)
	}

	record, err := ExecuteWritePlan(c.Context(), h.store, plan)
	if err != nil {
		return handleWriteError(err)
	}

	return c.JSON([]map[string]any{record})
}

// Update handles PATCH /api/records/:entity. The record is selected by the
// payload's Id.
func (h *Handler) Update(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	body, err := parsePayload(c.Body())
	if err != nil {
		return err
	}

	id := idString(body[metadata.IDField])
	if id == "" {
		id = c.Query(metadata.IDField)
	}
	if id == "" {
		return InvalidPayloadError("Id is required to update a record")
	}

	if _, err := fetchRecord(c.Context(), h.store.DB, h.store.Dialect, entity, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(entity.Name, id)
		}
		return fmt.Errorf("fetch %s/%s: %w", entity.Name, id, err)
	}

	plan, validationErrs := PlanWrite(entity, body, id)
	if len(validationErrs) > 0 {
		return ValidationError(validationErrs)
	}

	record, err := ExecuteWritePlan(c.Context(), h.store, plan)
	if err != nil {
		return handleWriteError(err)
	}

	return c.JSON([]map[string]any{record})
}

// Delete handles DELETE /api/records/:entity?Id=...
func (h *Handler) Delete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	id := c.Query(metadata.IDField)
	if id == "" {
		return NewAppError("INVALID_PARAM", 400, "Id is required to delete a record")
	}

	tx, err := h.store.BeginTx(c.Context())
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var sql string
	var params []any
	if entity.SoftDelete {
		sql, params = BuildSoftDeleteSQL(entity, h.store.Dialect, id)
	} else {
		sql, params = BuildHardDeleteSQL(entity, h.store.Dialect, id)
	}

	affected, err := store.Exec(c.Context(), tx, sql, params...)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", entity.Name, id, err)
	}
	if affected == 0 {
		return NotFoundError(entity.Name, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return c.JSON([]fiber.Map{{metadata.IDField: id}})
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*metadata.Entity, error) {
	name := c.Params("entity")
	entity := h.registry.GetEntity(name)
	if entity == nil {
		return nil, UnknownEntityError(name)
	}
	return entity, nil
}

// parsePayload accepts the one-element array the console sends. A bare
// object is tolerated for hand-written requests.
func parsePayload(raw []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, InvalidPayloadError("Request body is empty")
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, InvalidPayloadError("Invalid JSON body")
		}
		if len(items) != 1 {
			return nil, InvalidPayloadError(fmt.Sprintf("Expected exactly one record, got %d", len(items)))
		}
		if items[0] == nil {
			return nil, InvalidPayloadError("Record must be a JSON object")
		}
		return items[0], nil
	}

	var item map[string]any
	if err := json.Unmarshal([]byte(trimmed), &item); err != nil || item == nil {
		return nil, InvalidPayloadError("Invalid JSON body")
	}
	return item, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func handleWriteError(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, store.ErrNotFound) {
		return NewAppError("NOT_FOUND", 404, "Record not found")
	}

	if errors.Is(err, store.ErrUniqueViolation) {
		msg := "A record with this value already exists"
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			msg = pgErr.Detail
		}
		return ConflictError(msg)
	}

	return err
}
