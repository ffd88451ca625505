package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserContext is the authenticated student attached to a request
type UserContext struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

type userKey struct{}

func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// FromContext returns the user set by the middleware, if any
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userKey{}).(*UserContext)
	return user, ok && user != nil
}
