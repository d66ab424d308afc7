package middleware

import (
	"net/http"
	"time"

	"infinite-experiment/dispatchboard/internal/auth"
	"infinite-experiment/dispatchboard/internal/common"
)

// IsDispatcherMiddleware lets through only claims allowed to write
// assignments. Must run after AuthMiddleware.
func IsDispatcherMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetUserClaims(r.Context())

			if auth.CanMutate(claims) {
				next.ServeHTTP(w, r)
				return
			}
			common.RespondError(w, time.Now(), nil, "Unauthorized. Need dispatcher role", http.StatusForbidden)
		})
	}
}
