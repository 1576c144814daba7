package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows browser calls from the marketing site origins
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
