package middleware

import (
	"net/http"

	core "github.com/anditama/inventory-management/internal"
	"github.com/anditama/inventory-management/pkg/logger"
)

// CallerContext enriches the request log context with the authenticated
// caller. Must run after the auth middleware; unauthenticated requests
// pass through untouched.
func CallerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller, ok := core.CallerFromContext(r.Context()); ok {
			ctx := logger.With(r.Context(), "userID", caller.UserID, "role", caller.Role)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
