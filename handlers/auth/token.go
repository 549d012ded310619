package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/response"
)

// RefreshRequest carries the refresh token being exchanged
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new token pair. The presented
// refresh token is single-use; it is revoked as part of the exchange.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	pair, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return response.AuthError(c, err)
	}

	return response.Success(c, pair)
}
