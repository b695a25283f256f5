package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JonMunkholm/insightdesk/internal/logging"
)

// APIKeyHeader carries the client's key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key is not one of keys. When
// required is false every request passes. When required is true and keys is
// empty every request is rejected.
func APIKeyAuth(required bool, keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key != "" && validKey(key, keys) {
				next.ServeHTTP(w, r)
				return
			}

			status, code := http.StatusUnauthorized, "AUTH_MISSING_KEY"
			if key != "" {
				status, code = http.StatusForbidden, "AUTH_INVALID_KEY"
			}
			logging.FromContext(r.Context()).Warn("api key rejected",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
				"code", code,
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","code":"` + code + `"}`))
		})
	}
}

// validKey compares key against every configured key so the time taken does
// not reveal which one matched.
func validKey(key string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
