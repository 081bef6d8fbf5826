package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/equipment-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5, "idp")
	token, expires, err := tm.GenerateToken(domain.Actor{ID: "coordinator-7", Type: domain.ActorTypeUser})
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: "coordinator-7", Type: domain.ActorTypeUser}, actor)
}

func TestParseToken_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 5, "idp")

	other, _, err := NewTokenManager("other-secret", 5, "idp").GenerateToken(domain.SystemActor("auto"))
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err, "wrong secret")

	wrongIssuer, _, err := NewTokenManager("secret", 5, "elsewhere").GenerateToken(domain.SystemActor("auto"))
	require.NoError(t, err)
	_, err = tm.ParseToken(wrongIssuer)
	assert.Error(t, err, "wrong issuer")

	noSubject, _, err := tm.GenerateToken(domain.Actor{})
	require.NoError(t, err)
	_, err = tm.ParseToken(noSubject)
	assert.Error(t, err)
}

func TestClaimsActor_UnknownType(t *testing.T) {
	claims := &Claims{ActorType: "ROBOT"}
	claims.Subject = "r2"
	_, err := claims.Actor()
	assert.Error(t, err)
}
