package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/response"
	"github.com/stockpilot/inventory-api/utils/validation"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Username = validation.SanitizeString(req.Username)

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.auth.Login(c.Context(), req.Username, req.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return response.AuthError(c, err)
	}

	return response.Success(c, result)
}
