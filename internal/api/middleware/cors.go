package middleware

import (
	"net/http"
	"strings"
)

// CORSConfig holds CORS configuration options
type CORSConfig struct {
	Origins     []string
	Methods     []string
	Headers     []string
	Credentials bool
	MaxAge      string
}

// DefaultCORSConfig allows the task API's methods from the given origins.
func DefaultCORSConfig(origins ...string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		Headers: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:  "86400",
	}
}

// CORS sets the CORS headers on every response and answers preflight
// OPTIONS requests with 200 and an empty body, before authentication.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(config.Methods, ", ")
	headers := strings.Join(config.Headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			for _, origin := range config.Origins {
				if origin == "*" || origin == reqOrigin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					if origin != "*" {
						w.Header().Add("Vary", "Origin")
					}
					break
				}
			}

			if config.Credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if methods != "" {
				w.Header().Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				w.Header().Set("Access-Control-Allow-Headers", headers)
			}
			if config.MaxAge != "" {
				w.Header().Set("Access-Control-Max-Age", config.MaxAge)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
