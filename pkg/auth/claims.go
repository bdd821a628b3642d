// Package auth provides JWT-based authentication for the dedup engine.
// It validates tokens issued by the portal auth server using JWKS endpoints.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
)

// Claims represents the JWT claims structure issued by the portal auth server.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds custom claims for tenant context.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tid,omitempty"`   // Tenant UUID
	Email    string   `json:"email,omitempty"` // User email address
	Roles    []string `json:"roles,omitempty"` // User roles within the tenant
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// SetClaims stores JWT claims in the context.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// TenantFromContext extracts the tenant ID from JWT claims in context.
// Returns an error if not authenticated or the claim is missing or malformed.
func TenantFromContext(ctx context.Context) (uuid.UUID, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, fmt.Errorf("authentication required: no claims in context")
	}

	if claims.TenantID == "" {
		return uuid.Nil, fmt.Errorf("missing tenant ID in JWT claims")
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant ID format: %w", err)
	}

	return tenantID, nil
}

// ActorFromContext returns the acting user for audit attribution: the email
// claim when present, otherwise the token subject, otherwise "system".
func ActorFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return "system"
	}
	if claims.Email != "" {
		return claims.Email
	}
	if claims.Subject != "" {
		return claims.Subject
	}
	return "system"
}
