package console

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"orgs-sync/internal/browser"
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/schema"
)

const sessionKey = "session"

// Handler exposes browser sessions over HTTP. Every success answers with the
// fresh view and the notifications raised while handling the request.
type Handler struct {
	manager *SessionManager
}

func NewHandler(manager *SessionManager) *Handler {
	return &Handler{manager: manager}
}

// Envelope is the success body of every session route.
type Envelope struct {
	Session       string                 `json:"session"`
	Data          browser.View           `json:"data"`
	Notifications []browser.Notification `json:"notifications"`
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	s := h.manager.Create(c.UserContext())
	s.ops.Lock()
	defer s.ops.Unlock()
	return c.Status(fiber.StatusCreated).JSON(envelope(s))
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	s := getSession(c)
	s.ops.Lock()
	defer s.ops.Unlock()
	return c.JSON(envelope(s))
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	h.manager.Delete(getSession(c).ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Initialize retries a degraded session.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		return ctl.Initialize(ctx)
	})
}

func (h *Handler) ChangeEntity(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		return ctl.ChangeEntityType(ctx, body.Name)
	})
}

func (h *Handler) Search(c *fiber.Ctx) error {
	var body struct {
		SearchString string `json:"searchString"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		ctl.SetSearch(body.SearchString)
		return ctl.ResetAndSearch(ctx)
	})
}

func (h *Handler) Next(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error { return ctl.Next(ctx) })
}

func (h *Handler) Previous(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error { return ctl.Previous(ctx) })
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error { return ctl.Refresh(ctx) })
}

const deletePrompt = "Are you sure you want to delete the record?"

// RowAction handles POST /sessions/:id/rows/:recordId/:action. A delete is
// only carried out with ?confirm=true; without it the caller gets the prompt
// back and nothing is sent to the gateway.
func (h *Handler) RowAction(c *fiber.Ctx) error {
	id, action := c.Params("recordId"), c.Params("action")
	if action == schema.ActionDelete && !c.QueryBool("confirm") {
		return c.Status(fiber.StatusPreconditionRequired).JSON(fiber.Map{
			"error": ErrorBody{Code: "CONFIRMATION_REQUIRED", Message: deletePrompt},
		})
	}
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		return ctl.HandleRowAction(ctx, action, id)
	})
}

func (h *Handler) NewRecord(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error { return ctl.OpenCreate() })
}

func (h *Handler) SaveRecord(c *fiber.Ctx) error {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		return ctl.Submit(ctx, body.Fields)
	})
}

func (h *Handler) CloseModal(c *fiber.Ctx) error {
	return run(c, func(ctx context.Context, ctl *browser.Controller) error {
		ctl.CloseModal()
		return nil
	})
}

// run applies one browser operation. Gateway failures are not HTTP failures:
// they are reported through the notifications next to the resulting view.
// Locally refused operations answer with an error status.
func run(c *fiber.Ctx, op func(ctx context.Context, ctl *browser.Controller) error) error {
	s := getSession(c)
	s.ops.Lock()
	defer s.ops.Unlock()

	err := op(c.UserContext(), s.Controller)
	switch {
	case err == nil, errors.Is(err, browser.ErrStaleResponse):
	case gateway.KindOf(err) == gateway.KindPrecondition:
		status, code := refusal(err)
		return c.Status(status).JSON(fiber.Map{
			"error":         ErrorBody{Code: code, Message: gateway.MessageOf(err)},
			"notifications": s.Notifications.Drain(),
		})
	case gateway.KindOf(err) == "":
		return err
	}
	return c.JSON(envelope(s))
}

func envelope(s *Session) Envelope {
	return Envelope{
		Session:       s.ID,
		Data:          s.Controller.View(),
		Notifications: s.Notifications.Drain(),
	}
}

func getSession(c *fiber.Ctx) *Session {
	s, _ := c.Locals(sessionKey).(*Session)
	return s
}
