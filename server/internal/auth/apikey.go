package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// APIKey returns HTTP middleware that enforces API key authentication.
//
// Behaviour:
//   - If key == "", all requests are allowed (pass-through).
//   - Otherwise the value of header must equal key.
//   - A missing, empty, or incorrect key returns 401 with a JSON error body.
func APIKey(header, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" {
				unauthorized(w, "missing api key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "message": msg}) //nolint:errcheck
}
