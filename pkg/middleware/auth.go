package middleware

import (
	"net/http"
	"studentnest/pkg/auth"
	apperrors "studentnest/pkg/errors"
	"studentnest/pkg/logger"
)

// Authentication verifies the bearer token and places the caller's identity
// in the request context. Everything behind it can assume an authenticated,
// role-validated caller.
func Authentication(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.VerifyHeader(r.Header.Get("Authorization"))
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", requestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				apperrors.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
