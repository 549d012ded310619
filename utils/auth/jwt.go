package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// maxTokenLength caps accepted token size so a hostile header cannot trigger
// oversized parse allocations.
const maxTokenLength = 8192

// Claims is the token payload. Roles and permissions are a snapshot taken at
// issuance; only is_active is re-checked live by the middleware.
type Claims struct {
	UserID      uint     `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	IsActive    bool     `json:"is_active"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	TokenType   string   `json:"token_type"` // "access" or "refresh"
	jwt.RegisteredClaims
}

// TokenInput is the user data embedded into a newly issued token
type TokenInput struct {
	UserID      uint
	Username    string
	Email       string
	IsActive    bool
	Roles       []string
	Permissions []string
}

// TokenCodecConfig holds codec configuration
type TokenCodecConfig struct {
	GlobalSecret string
	Issuer       string
}

// TokenCodec issues and verifies tokens signed with a key derived from the
// system-wide secret combined with a per-user secret. Rotating either secret
// invalidates the signature; rotating a user secret invalidates only that
// user's tokens.
type TokenCodec struct {
	config TokenCodecConfig
}

// NewTokenCodec creates a token codec
func NewTokenCodec(config TokenCodecConfig) *TokenCodec {
	return &TokenCodec{config: config}
}

// signingKey derives the HMAC key from the global and per-user secrets
func (c *TokenCodec) signingKey(userSecret string) []byte {
	sum := sha256.Sum256([]byte(c.config.GlobalSecret + userSecret))
	return sum[:]
}

// KeyID returns the truncated hash of a user secret used as the kid header.
// It is a lookup hint only and carries no trust; authorization always goes
// through signature verification against the secret fetched by user_id.
func KeyID(userSecret string) string {
	sum := sha256.Sum256([]byte(userSecret))
	return hex.EncodeToString(sum[:])[:16]
}

// Issue signs a new token of the given type and returns it with its jti
func (c *TokenCodec) Issue(in TokenInput, tokenType string, ttl time.Duration, userSecret string) (string, string, error) {
	now := time.Now()
	jti := uuid.New().String()

	claims := Claims{
		UserID:      in.UserID,
		Username:    in.Username,
		Email:       in.Email,
		IsActive:    in.IsActive,
		Roles:       in.Roles,
		Permissions: in.Permissions,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
			Subject:   in.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KeyID(userSecret)

	signedToken, err := token.SignedString(c.signingKey(userSecret))
	if err != nil {
		return "", "", err
	}
	return signedToken, jti, nil
}

// DecodeAndVerify validates a token against the user's secret and returns
// its claims. Every malformed-token condition collapses to ErrTokenInvalid;
// an expired but otherwise valid signature returns ErrTokenExpired.
func (c *TokenCodec) DecodeAndVerify(tokenString, userSecret string) (*Claims, error) {
	if len(tokenString) > maxTokenLength {
		return nil, ErrTokenInvalid
	}

	// Restrict accepted algorithms to prevent algorithm confusion
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.signingKey(userSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// PeekClaims parses a token without verifying the signature. Used only to
// learn which user's secret to fetch and which jti to check against the
// blacklist; nothing peeked here is trusted for authorization.
func (c *TokenCodec) PeekClaims(tokenString string) (*Claims, error) {
	if len(tokenString) > maxTokenLength {
		return nil, ErrTokenInvalid
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// PeekUserID extracts the user id without signature verification
func (c *TokenCodec) PeekUserID(tokenString string) (uint, error) {
	claims, err := c.PeekClaims(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// PeekJTI extracts the token id without signature verification
func (c *TokenCodec) PeekJTI(tokenString string) (string, error) {
	claims, err := c.PeekClaims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}
