package httpapi

import (
	"crypto/hmac"
	"net/http"
)

// requireSharedSecret rejects v2 requests whose X-Relay-Key header does
// not exactly match secret. Comparison is constant-time for equal-length
// inputs, so response timing does not leak a matching prefix; a length
// mismatch is rejected without comparing contents.
func requireSharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Relay-Key")
			if key == "" || !hmac.Equal([]byte(key), []byte(secret)) {
				writeError(w, http.StatusUnauthorized, "missing or invalid X-Relay-Key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireBearerToken rejects v1 requests whose Authorization header is
// not "Bearer <token>" matching token exactly.
func requireBearerToken(token string) func(http.Handler) http.Handler {
	const prefix = "Bearer "
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header", nil)
				return
			}
			presented := auth[len(prefix):]
			if !hmac.Equal([]byte(presented), []byte(token)) {
				writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
