package console

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"orgs-sync/internal/browser"
	"orgs-sync/internal/gateway"
)

// ErrorBody is the console's failure envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// refusal maps a locally refused browser operation to an HTTP status and code.
func refusal(err error) (int, string) {
	switch {
	case errors.Is(err, browser.ErrUnknownEntityType), errors.Is(err, browser.ErrRecordNotCached):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, browser.ErrUnhandledAction):
		return fiber.StatusBadRequest, "UNHANDLED_ACTION"
	case errors.Is(err, browser.ErrNotReady), errors.Is(err, browser.ErrAlreadyInitialized):
		return fiber.StatusConflict, "NOT_READY"
	case errors.Is(err, browser.ErrFirstPage), errors.Is(err, browser.ErrLastPage):
		return fiber.StatusConflict, "NO_SUCH_PAGE"
	default:
		return fiber.StatusConflict, "INVALID_STATE"
	}
}

// ErrorHandler renders errors that escaped a handler as {"error":{...}}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": ErrorBody{Code: codeForStatus(fiberErr.Code), Message: fiberErr.Message}})
	}

	if gateway.KindOf(err) == gateway.KindPrecondition {
		status, code := refusal(err)
		return c.Status(status).JSON(fiber.Map{"error": ErrorBody{Code: code, Message: gateway.MessageOf(err)}})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": ErrorBody{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	}})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	default:
		return "ERROR"
	}
}
