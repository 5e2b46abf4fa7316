package auth

import (
	"github.com/gofiber/fiber/v2"
)

// LoginHandler issues console tokens against a single operator password hash.
type LoginHandler struct {
	passwordHash string
	jwtSecret    string
}

func NewLoginHandler(passwordHash, jwtSecret string) *LoginHandler {
	return &LoginHandler{passwordHash: passwordHash, jwtSecret: jwtSecret}
}

// Login handles POST /login.
func (h *LoginHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Password == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Password is required")
	}
	if !CheckPassword(body.Password, h.passwordHash) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid password")
	}

	token, err := GenerateConsoleToken("operator", h.jwtSecret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"access_token": token}})
}
