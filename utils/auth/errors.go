package auth

import (
	"errors"
	"fmt"
	"time"
)

// Terminal authentication errors. Handlers map these to stable response
// codes; raw decode errors never reach the client.
var (
	ErrTokenMissing       = errors.New("missing authorization token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSecretUnavailable  = errors.New("user signing secret unavailable")
	ErrUserNotFound       = errors.New("user not found")
)

// RateLimitedError reports a throttled request along with how long the
// caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
