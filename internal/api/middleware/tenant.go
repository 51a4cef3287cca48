// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// TenantHeader carries the tenant id(s) a request operates on. Queries may
// name several tenants separated by commas; mutations require exactly one.
const TenantHeader = "Nightjar-Tenant"

type contextKey string

const tenantsKey contextKey = "tenants"

func jsonBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "BAD_REQUEST",
			"message": message,
		},
	})
}

// RequireTenant rejects requests without a tenant header and stores the
// parsed tenant list in the request context.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(TenantHeader))
		if header == "" {
			jsonBadRequest(w, "missing "+TenantHeader+" header")
			return
		}
		var tenants []string
		for _, t := range strings.Split(header, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tenants = append(tenants, t)
			}
		}
		if len(tenants) == 0 {
			jsonBadRequest(w, "missing "+TenantHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenants(r.Context(), tenants)))
	})
}

// WithTenants returns a context carrying the given tenant list.
func WithTenants(ctx context.Context, tenants []string) context.Context {
	return context.WithValue(ctx, tenantsKey, tenants)
}

// TenantsFromContext returns the tenant list stored by RequireTenant.
func TenantsFromContext(ctx context.Context) []string {
	tenants, _ := ctx.Value(tenantsKey).([]string)
	return tenants
}
