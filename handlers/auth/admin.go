package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/middleware"
	"github.com/stockpilot/inventory-api/utils/response"
)

// RevokeUserSessions force-logs-out every session of the target user
func (h *AuthHandler) RevokeUserSessions(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	actor, _ := middleware.GetUsername(c)

	if err := h.auth.RevokeUserSessions(c.Context(), uint(userID), actor, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to revoke sessions")
	}

	return response.SuccessWithMessage(c, "All sessions revoked", nil)
}

// RotateUserSecret replaces the target user's signing secret, invalidating
// every token issued under the old one
func (h *AuthHandler) RotateUserSecret(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	actor, _ := middleware.GetUsername(c)

	if err := h.auth.RotateUserSecret(c.Context(), uint(userID), actor, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to rotate secret")
	}

	return response.SuccessWithMessage(c, "Signing secret rotated", nil)
}
