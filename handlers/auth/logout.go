package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/response"
)

// LogoutRequest controls logout scope
type LogoutRequest struct {
	AllDevices bool `json:"all_devices"`
}

// Logout revokes the presented access token. With all_devices set, every
// session of the user is revoked.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return response.AuthError(c, auth.ErrTokenMissing)
	}

	// Body is optional; a missing or malformed body means single-session
	// logout
	var req LogoutRequest
	_ = c.BodyParser(&req)

	if err := h.auth.Logout(c.Context(), parts[1], req.AllDevices, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		return response.AuthError(c, err)
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
