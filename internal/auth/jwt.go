package auth

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/ordercast-server/internal/core"
)

// Claims represents JWT claims for an admin session.
type Claims struct {
	UserID     int64    `json:"user_id"`
	Username   string   `json:"username"`
	StoreIDs   []string `json:"store_ids,omitempty"`
	SuperAdmin bool     `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the identity attached to a connection.
func (c *Claims) Principal() core.Principal {
	return core.Principal{
		UserID:     c.UserID,
		Username:   c.Username,
		StoreIDs:   slices.Clone(c.StoreIDs),
		SuperAdmin: c.SuperAdmin,
	}
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given principal.
func GenerateToken(cfg *JWTConfig, p core.Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:     p.UserID,
		Username:   p.Username,
		StoreIDs:   p.StoreIDs,
		SuperAdmin: p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   p.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
