package main

import (
	"net/http"
	"strings"

	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
)

// authMiddleware validates the bearer token and forwards the caller's claims
// as X-Auth-* headers. Inbound copies of those headers are always dropped.
func authMiddleware(next http.Handler, tokens *auth.TokenIssuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.StripHeaders(r.Header)

		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			httpx.WriteError(w, apperrors.Unauthorized("Missing Authorization header"))
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(tokenString))
		if err != nil {
			logging.Logger.Warnf("Event ID: TOKEN_REJECTED, Description: %s %s: %v", r.Method, r.URL.Path, err)
			httpx.WriteError(w, apperrors.Unauthorized("Invalid token"))
			return
		}

		claims.Identity().Apply(r.Header)
		next.ServeHTTP(w, r)
	})
}

// anonymous forwards requests that need no token, without identity headers.
func anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.StripHeaders(r.Header)
		next.ServeHTTP(w, r)
	})
}
