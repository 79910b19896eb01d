package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ana",
		Issuer:    "llmontreal-api",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	claims, err := Inspect("Bearer " + signed)
	require.NoError(t, err)
	require.Equal(t, "ana", claims.Subject)
	require.Equal(t, "llmontreal-api", claims.Issuer)
	require.True(t, claims.ExpiresAt.Equal(exp))
	require.False(t, claims.Expired(time.Now()))
	require.True(t, claims.Expired(exp.Add(time.Minute)))
}

func TestInspectOpaqueToken(t *testing.T) {
	_, err := Inspect("opaque-session-token")
	require.ErrorIs(t, err, ErrNotJWT)

	_, err = Inspect("a.b.c")
	require.Error(t, err)
}
