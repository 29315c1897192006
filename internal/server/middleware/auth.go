package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// APIKey guards the admin and status surface with a single static key.
// Requests present it either as "Authorization: Bearer <key>" or in the
// X-API-Key header. An empty configured key disables the guard, which is the
// sim-mode default.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := requestKey(r)
			if presented == "" {
				reject(w, "missing api key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				reject(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestKey pulls the presented key out of the request. X-API-Key wins over
// the Authorization header; only the Bearer scheme is recognized there.
func requestKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	scheme, rest, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

func reject(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, "{\"error\":%q}\n", reason)
}
