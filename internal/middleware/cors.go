package middleware

import (
	"slices"

	"github.com/go-chi/cors"

	"github.com/forkful/recommender/internal/config"
)

// CORS builds the browser policy for the chat frontend. The API is
// anonymous, so credentials are only allowed for an explicit origin list;
// browsers reject credentials alongside a wildcard anyway.
func CORS(cfg config.CORSConfig) cors.Options {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           600,
	}
}
