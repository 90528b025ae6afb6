package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"docuflow/internal/config"
	"docuflow/internal/domain"
)

// Claims represents the JWT claims with tenant context. Tokens are issued by
// the external auth service; this package only validates them.
type Claims struct {
	jwt.RegisteredClaims
	TenantID uuid.UUID       `json:"tenant_id"`
	UserID   uuid.UUID       `json:"user_id"`
	Email    string          `json:"email"`
	Role     domain.UserRole `json:"role"`
}

// Verifier validates bearer tokens and extracts tenant context.
type Verifier interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type verifier struct {
	cfg config.JWTConfig
}

// NewVerifier creates a new HMAC token Verifier.
func NewVerifier(cfg config.JWTConfig) Verifier {
	return &verifier{cfg: cfg}
}

func (v *verifier) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	if v.cfg.Issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != v.cfg.Issuer {
			return nil, domain.ErrUnauthorized
		}
	}

	if claims.TenantID == uuid.Nil || claims.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
