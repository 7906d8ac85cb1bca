package util

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// WithCORS allows browser clients from the configured origins. An empty list
// or "*" allows any origin without credentials.
func WithCORS(origins []string, next http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	credentials := true
	for _, o := range allowed {
		if o == "*" {
			credentials = false
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           600,
	}).Handler(next)
}
