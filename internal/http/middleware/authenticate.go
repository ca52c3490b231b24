package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/realty-auth/internal/errors"
	"github.com/pribylovaa/realty-auth/internal/models"
	logctx "github.com/pribylovaa/realty-auth/internal/pkg/log"
	"github.com/pribylovaa/realty-auth/internal/service"
)

// Authenticator проверяет значение заголовка Authorization.
// (nil, nil) означает анонимный запрос.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*models.Principal, error)
}

type principalKey struct{}

// Authenticate прогоняет запрос через Authenticator; ставится на защищённые маршруты.
// Любая ошибка проверки прерывает запрос; анонимный запрос проходит дальше
// без principal в контексте.
func Authenticate(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				logctx.From(r.Context()).Debug("auth_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			if p != nil {
				ctx := WithPrincipal(r.Context(), p)
				ctx = logctx.With(ctx, slog.String("user_id", p.User.ID.String()))
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth отклоняет анонимные запросы (401).
func RequireAuth() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); !ok {
				apierrors.WriteError(w, r, service.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFrom достаёт аутентифицированного вызывающего из контекста.
func PrincipalFrom(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok && p != nil
}

// WithPrincipal кладёт principal в контекст.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}
