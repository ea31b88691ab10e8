package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the app shell's origins to call the bridge. Preflight
// requests are answered with 200.
// allowedOrigins is the list of allowed origins (e.g. http://localhost:8081).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
