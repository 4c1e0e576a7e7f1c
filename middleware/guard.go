package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/waitgate/jwt"
)

type operatorContextKey struct{}

// OperatorFromContext returns the claims stored by RequireOperator.
func OperatorFromContext(ctx context.Context) (*jwt.OperatorClaims, bool) {
	claims, ok := ctx.Value(operatorContextKey{}).(*jwt.OperatorClaims)
	return claims, ok
}

// RequireOperator admits requests carrying a valid operator bearer token with scope.
// Missing or invalid tokens get 401; a valid token without the scope gets 403.
func RequireOperator(tokens *jwt.Manager, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if scope != "" && !claims.HasScope(scope) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), operatorContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
