package auth

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsignedToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, body)
}

func TestJWKSClient_VerificationDisabled(t *testing.T) {
	client, err := NewJWKSClient(&JWKSConfig{EnableVerification: false})
	require.NoError(t, err)

	t.Run("parses claims without signature", func(t *testing.T) {
		token := unsignedToken(`{"sub":"user-1","tid":"a1b2c3d4-0000-0000-0000-000000000001","email":"officer@bank.example"}`)

		claims, err := client.ValidateToken(token)

		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject)
		assert.Equal(t, "a1b2c3d4-0000-0000-0000-000000000001", claims.TenantID)
		assert.Equal(t, "officer@bank.example", claims.Email)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		_, err := client.ValidateToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestNewJWKSClient_DisabledSkipsEndpointFetch(t *testing.T) {
	// With verification off the constructor must not dial the (nonexistent)
	// JWKS endpoints.
	client, err := NewJWKSClient(&JWKSConfig{
		EnableVerification: false,
		JWKSEndpoints: map[string]string{
			"https://auth.trdrhub.com": "https://auth.invalid/.well-known/jwks.json",
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
