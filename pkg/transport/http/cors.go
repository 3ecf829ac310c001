package http

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rhuss/chatrelay/pkg/transport"
)

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsExposeHeaders = DataStreamHeader + ", " + transport.RequestIDHeader
)

// corsMiddleware answers preflight requests and sets CORS headers for
// allowed origins. Credentials are allowed, so the request origin is echoed
// rather than "*". Requests without an Origin header pass through.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	origins = normalizeOrigins(origins)
	wildcard := slices.Contains(origins, "*")

	allowed := func(origin string) bool {
		return wildcard || slices.Contains(origins, origin)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !allowed(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			next.ServeHTTP(w, r)
		})
	}
}

// normalizeOrigins trims whitespace and trailing slashes from origins.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
