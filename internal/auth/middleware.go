package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studybuddy/studybuddy-api/internal/domain"
	"go.uber.org/zap"
)

// UserLookup loads the account behind a token so deactivated users are rejected
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	tokens     *TokenManager
	userLookup UserLookup
	apiKey     string
	logger     *zap.Logger
}

// NewMiddleware creates a new authentication middleware.
// userLookup may be nil, in which case token claims are trusted as-is.
func NewMiddleware(tokens *TokenManager, userLookup UserLookup, apiKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens:     tokens,
		userLookup: userLookup,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Authenticate requires a valid bearer token
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		userCtx, err := m.resolve(r.Context(), token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireAPIKey guards operational endpoints with the x-api-key header
func (m *Middleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.validateAPIKey(r.Header.Get("x-api-key")) {
			m.logger.Warn("invalid API key attempt",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			writeError(w, http.StatusUnauthorized, "Valid API key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolve(ctx context.Context, token string) (*UserContext, error) {
	userCtx, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if m.userLookup == nil {
		return userCtx, nil
	}

	user, err := m.userLookup.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	userCtx.Name = user.Name
	userCtx.Email = user.Email
	return userCtx, nil
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// WebSocket upgrades, so those requests may pass access_token in the query.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}

	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

func writeError(w http.ResponseWriter, status int, detail string) {
	errType := domain.ErrorTypeUnauthorized
	if status == http.StatusForbidden {
		errType = domain.ErrorTypeForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
