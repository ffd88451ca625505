package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/studybuddy/studybuddy-api/internal/config"
	"go.uber.org/zap"
)

func isDevelopment(environment string) bool {
	return environment == "development" || environment == "local" || environment == ""
}

// CORS returns a CORS middleware configured from the application config.
// With no origins configured, development allows every origin and other environments deny all.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	allowAny := func(r *http.Request, origin string) bool { return origin != "" }

	switch {
	case containsWildcard(cfg.AllowedOrigins):
		if !isDevelopment(environment) {
			logger.Warn("CORS configured with wildcard origin in non-development environment",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = allowAny
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins",
			zap.Strings("origins", cfg.AllowedOrigins))
	case isDevelopment(environment):
		options.AllowOriginFunc = allowAny
		logger.Info("CORS configured to allow all origins in development mode")
	default:
		// an empty AllowedOrigins would mean "*" to go-chi/cors
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS configured with no allowed origins - all cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

// WebSocketOrigins returns the origins the realtime endpoint accepts, matching the CORS policy
func WebSocketOrigins(cfg *config.CORSConfig, environment string) []string {
	if len(cfg.AllowedOrigins) == 0 && isDevelopment(environment) {
		return []string{"*"}
	}
	return cfg.AllowedOrigins
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
