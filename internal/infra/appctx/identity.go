package appctx

import (
	"context"

	"github.com/Mihika-Tech/LiveCollab/internal/domain/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity добавляет аутентифицированного пользователя в контекст
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Identity извлекает пользователя из контекста
func Identity(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
