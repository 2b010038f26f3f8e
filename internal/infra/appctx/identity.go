package appctx

import (
	"context"

	"github.com/qrave1/RehearsalHub/internal/domain"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity добавляет проверенную личность в контекст
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Identity извлекает личность из контекста
func Identity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok && identity.UserID != ""
}
