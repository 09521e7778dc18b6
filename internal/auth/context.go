package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type ctxKey string

const userKey ctxKey = "currentUser"

// WithUser stores the resolved caller identity on the context.
func WithUser(ctx context.Context, user models.PublicUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom retrieves the caller identity placed on the context by the auth gate.
func UserFrom(ctx context.Context) (models.PublicUser, bool) {
	if ctx == nil {
		return models.PublicUser{}, false
	}
	user, ok := ctx.Value(userKey).(models.PublicUser)
	return user, ok && user.ID != ""
}
