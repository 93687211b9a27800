package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"
)

// CORS admits the listed browser origins. With an empty list only loopback
// origins pass, which is where a development client is served from.
func CORS(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}
	if len(allowedOrigins) > 0 {
		opts.AllowedOrigins = allowedOrigins
	} else {
		opts.AllowOriginFunc = func(_ *http.Request, origin string) bool {
			return loopbackOrigin(origin)
		}
	}
	return cors.Handler(opts)
}

func loopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
