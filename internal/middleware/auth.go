package middleware

import (
	"net/http"

	"warehouse-api/internal/auth"
	"warehouse-api/internal/logger"
	"warehouse-api/internal/utils"

	"go.uber.org/zap"
)

// RequireAuth rejects mutating requests without a valid bearer token signed
// with secret. Safe methods pass through untouched. An empty secret disables
// the check.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(auth.ExtractAccessToken(r), secret)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("unauthorized request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="warehouse-api"`)
				utils.WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
				return
			}

			ctx := utils.WithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
