package middleware

import (
	"net/http"

	"nextaz-be/internal/auth"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/utils"

	"go.uber.org/zap"
)

// RequireAdmin rejects requests without a valid admin token and stores the
// admin username in the context otherwise.
func RequireAdmin(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractAccessToken(r)
			if token == "" {
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("admin token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithAdmin(r.Context(), claims.Username)))
		})
	}
}
