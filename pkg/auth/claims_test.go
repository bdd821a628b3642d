package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantFromContext(t *testing.T) {
	tenantID := uuid.New()

	t.Run("valid claims", func(t *testing.T) {
		ctx := SetClaims(context.Background(), &Claims{TenantID: tenantID.String()})
		got, err := TenantFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, tenantID, got)
	})

	t.Run("no claims", func(t *testing.T) {
		_, err := TenantFromContext(context.Background())
		assert.Error(t, err)
	})

	t.Run("missing tenant claim", func(t *testing.T) {
		ctx := SetClaims(context.Background(), &Claims{})
		_, err := TenantFromContext(ctx)
		assert.Error(t, err)
	})

	t.Run("malformed tenant claim", func(t *testing.T) {
		ctx := SetClaims(context.Background(), &Claims{TenantID: "not-a-uuid"})
		_, err := TenantFromContext(ctx)
		assert.Error(t, err)
	})
}

func TestActorFromContext(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		want   string
	}{
		{
			name:   "email preferred",
			claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}, Email: "officer@bank.example"},
			want:   "officer@bank.example",
		},
		{
			name:   "subject fallback",
			claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}},
			want:   "user-1",
		},
		{
			name:   "empty claims",
			claims: &Claims{},
			want:   "system",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := SetClaims(context.Background(), tt.claims)
			assert.Equal(t, tt.want, ActorFromContext(ctx))
		})
	}

	t.Run("no claims at all", func(t *testing.T) {
		assert.Equal(t, "system", ActorFromContext(context.Background()))
	})
}
