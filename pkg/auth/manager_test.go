package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagoraheem/locador-inventory-sub001/pkg/actor"
	"github.com/thiagoraheem/locador-inventory-sub001/pkg/config"
)

func testManager() *Manager {
	return NewManager(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "locador",
	})
}

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "locador",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: "counter-1",
		Name:   "Maria Souza",
		Role:   actor.RoleSupervisor,
	}
}

func TestVerify_ValidToken(t *testing.T) {
	mgr := testManager()
	tokenString := signToken(t, "test-secret", validClaims())

	a, err := mgr.Verify(tokenString)

	require.NoError(t, err)
	assert.Equal(t, "counter-1", a.ID)
	assert.Equal(t, "Maria Souza", a.Name)
	assert.Equal(t, actor.RoleSupervisor, a.Role)
	assert.True(t, a.Elevated())
}

func TestVerify_MissingRoleDefaultsToCounter(t *testing.T) {
	mgr := testManager()
	claims := validClaims()
	claims.Role = ""
	tokenString := signToken(t, "test-secret", claims)

	a, err := mgr.Verify(tokenString)

	require.NoError(t, err)
	assert.Equal(t, actor.RoleCounter, a.Role)
	assert.False(t, a.Elevated())
}

func TestVerify_WrongSecret(t *testing.T) {
	mgr := testManager()
	tokenString := signToken(t, "other-secret", validClaims())

	_, err := mgr.Verify(tokenString)

	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	mgr := testManager()
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	tokenString := signToken(t, "test-secret", claims)

	_, err := mgr.Verify(tokenString)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerify_WrongIssuer(t *testing.T) {
	mgr := testManager()
	claims := validClaims()
	claims.Issuer = "someone-else"
	tokenString := signToken(t, "test-secret", claims)

	_, err := mgr.Verify(tokenString)

	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	mgr := testManager()

	_, err := mgr.Verify("not-a-token")

	assert.Error(t, err)
}
