package response

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/stockpilot/inventory-api/utils/auth"
)

// Response represents a standardized API response
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RetryAfter int64  `json:"retry_after,omitempty"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage returns a successful response with a message
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created returns a 201 Created response
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: "Resource created successfully",
		Data:    data,
	})
}

// NoContent returns a 204 No Content response
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Error returns an error response
func Error(c *fiber.Ctx, statusCode int, message string, code string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ErrorWithDetails returns an error response with details
func ErrorWithDetails(c *fiber.Ctx, statusCode int, message string, code string, details string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message, "BAD_REQUEST")
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *fiber.Ctx, message string, code string) error {
	if message == "" {
		message = "Unauthorized access"
	}
	if code == "" {
		code = "UNAUTHORIZED"
	}
	return Error(c, fiber.StatusUnauthorized, message, code)
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *fiber.Ctx, message string, code string) error {
	if message == "" {
		message = "Access forbidden"
	}
	if code == "" {
		code = "FORBIDDEN"
	}
	return Error(c, fiber.StatusForbidden, message, code)
}

// NotFound returns a 404 Not Found response
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, message, "NOT_FOUND")
}

// TooManyRequests returns a 429 response with a Retry-After header
func TooManyRequests(c *fiber.Ctx, message string, retryAfterSeconds int64) error {
	if message == "" {
		message = "Too many requests. Please try again later."
	}
	if retryAfterSeconds > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfterSeconds, 10))
	}
	return c.Status(fiber.StatusTooManyRequests).JSON(Response{
		Success: false,
		Error: &ErrorDetail{
			Code:       "RATE_LIMITED",
			Message:    message,
			RetryAfter: retryAfterSeconds,
		},
	})
}

// ValidationError returns a 422 Unprocessable Entity response for validation errors
func ValidationError(c *fiber.Ctx, err error) error {
	return ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
		"Validation failed", "VALIDATION_ERROR", err.Error())
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Internal server error"
	}
	return Error(c, fiber.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// ServiceUnavailable returns a 503 Service Unavailable response
func ServiceUnavailable(c *fiber.Ctx, message string, code string) error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	if code == "" {
		code = "SERVICE_UNAVAILABLE"
	}
	return Error(c, fiber.StatusServiceUnavailable, message, code)
}

// AuthError maps an authentication error to its HTTP response. Every error
// code here is stable API surface; clients branch on the code, not the
// message.
func AuthError(c *fiber.Ctx, err error) error {
	var rateLimited *auth.RateLimitedError
	if errors.As(err, &rateLimited) {
		return TooManyRequests(c, "Too many attempts. Please try again later.",
			int64(rateLimited.RetryAfter.Seconds()))
	}

	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return Unauthorized(c, "Authentication token is missing", "TOKEN_MISSING")
	case errors.Is(err, auth.ErrTokenExpired):
		return Unauthorized(c, "Authentication token has expired", "TOKEN_EXPIRED")
	case errors.Is(err, auth.ErrTokenRevoked):
		return Unauthorized(c, "Authentication token has been revoked", "TOKEN_REVOKED")
	case errors.Is(err, auth.ErrTokenInvalid):
		return Unauthorized(c, "Authentication token is invalid", "TOKEN_INVALID")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return Unauthorized(c, "Invalid username or password", "AUTH_INVALID_CREDENTIALS")
	case errors.Is(err, auth.ErrUserInactive):
		return Forbidden(c, "Account is deactivated", "USER_INACTIVE")
	case errors.Is(err, auth.ErrSecretUnavailable):
		return ServiceUnavailable(c, "Authentication is temporarily unavailable", "SECRET_UNAVAILABLE")
	default:
		return InternalServerError(c, "")
	}
}
