package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/studybuddy/studybuddy-api/internal/config"
)

// SecurityHeaders sets the configured browser security headers on every response.
// API responses carry user data and are marked no-store.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := map[string]string{
		"X-Frame-Options":         cfg.FrameOptions,
		"X-XSS-Protection":        cfg.XSSProtection,
		"Content-Security-Policy": cfg.ContentSecurityPolicy,
		"Referrer-Policy":         cfg.ReferrerPolicy,
		"Permissions-Policy":      cfg.PermissionsPolicy,
	}
	if cfg.ContentTypeNosniff {
		static["X-Content-Type-Options"] = "nosniff"
	}
	if cfg.EnableHSTS {
		static["Strict-Transport-Security"] = hstsValue(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range static {
				if value != "" {
					h.Set(name, value)
				}
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				h.Set("Cache-Control", "no-store")
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

func hstsValue(cfg *config.SecurityConfig) string {
	v := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
	if cfg.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	if cfg.HSTSPreload {
		v += "; preload"
	}
	return v
}
