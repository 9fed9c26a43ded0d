package middleware

import "net/http"

// NoStore returns middleware that marks responses as non-cacheable. The
// service maintains its own result cache and invalidates it on every write,
// so intermediary HTTP caches must not hold onto responses and serve results
// the service has already invalidated.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
