package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/config"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/errors"
)

// Claims represents the JWT claims carried by externally issued counter tokens.
// Token issuance is owned by the identity collaborator; the counting service
// only verifies signatures and extracts the counter identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Manager handles JWT verification
type Manager struct {
	config *config.JWTConfig
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg}
}

// Verify validates a token string and returns the actor it identifies.
func (m *Manager) Verify(tokenString string) (*actor.Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("unexpected signing method")
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Unauthorized("token has expired")
		}
		return nil, errors.Unauthorized("invalid token")
	}

	if !token.Valid {
		return nil, errors.Unauthorized("invalid token")
	}

	role := claims.Role
	if role == "" {
		role = actor.RoleCounter
	}

	return &actor.Actor{
		ID:   claims.UserID,
		Name: claims.Name,
		Role: role,
	}, nil
}
