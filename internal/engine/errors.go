package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorItem is one element of the failure body clients read the first
// message from.
type ErrorItem struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
	Field     string `json:"field,omitempty"`
}

// Items renders the error as the wire body. Validation failures produce one
// item per detail so the first failing field leads.
func (e *AppError) Items() []ErrorItem {
	if len(e.Details) == 0 {
		return []ErrorItem{{Message: e.Message, ErrorCode: e.Code}}
	}
	items := make([]ErrorItem, 0, len(e.Details))
	for _, d := range e.Details {
		items = append(items, ErrorItem{Message: d.Message, ErrorCode: e.Code, Field: d.Field})
	}
	return items
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func InvalidPayloadError(msg string) *AppError {
	return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: msg}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

// ErrorHandler is the fiber error handler of the gateway server. Every
// failure leaves as a JSON array of {message, errorCode}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(appErr.Items())
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON([]ErrorItem{{Message: fiberErr.Message, ErrorCode: codeForStatus(fiberErr.Code)}})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON([]ErrorItem{{
		Message:   "Internal server error",
		ErrorCode: "INTERNAL_ERROR",
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
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "ERROR"
	}
}
