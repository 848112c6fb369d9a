package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey guards console endpoints with a shared key in the X-API-Key
// header. An empty configured key disables the guard entirely, which is the
// local-development mode.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if got == "" {
				http.Error(w, "missing api key", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, "invalid api key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
