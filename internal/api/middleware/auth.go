package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims for API tokens. Tenants lists the tenant
// ids the token grants access to; "*" grants all tenants.
type Claims struct {
	jwt.RegisteredClaims
	Tenants []string `json:"tenants"`
}

func jsonUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": "invalid or missing token",
		},
	})
}

func jsonForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "FORBIDDEN",
			"message": "token does not grant access to the requested tenant",
		},
	})
}

// JWTAuth returns middleware that validates a Bearer token and checks that
// its tenants claim covers every tenant the request names. It must run
// after RequireTenant. A nil secret disables auth entirely.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				jsonUnauthorized(w)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				jsonUnauthorized(w)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				log.Printf("auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w)
				return
			}

			if !tenantsAllowed(claims.Tenants, TenantsFromContext(r.Context())) {
				jsonForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tenantsAllowed reports whether granted covers every requested tenant.
func tenantsAllowed(granted, requested []string) bool {
	allowed := make(map[string]bool, len(granted))
	for _, t := range granted {
		if t == "*" {
			return true
		}
		allowed[t] = true
	}
	for _, t := range requested {
		if !allowed[t] {
			return false
		}
	}
	return true
}
