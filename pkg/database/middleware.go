package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ripclass/trdrhub.com-sub003/pkg/auth"
)

// WithTenantContext creates middleware that sets up a tenant-scoped DB connection.
// It runs AFTER auth middleware and uses the tenant ID from JWT claims.
// The connection is automatically cleaned up after the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.TenantID == "" {
				logger.Error("Missing tenant context in claims")
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing tenant context")
				return
			}

			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				logger.Error("Invalid tenant ID format in claims",
					zap.String("tenant_id", claims.TenantID),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_tenant_id", "Invalid tenant ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), tenantID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetTenantScope(r.Context(), scope)))
		}
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
