// middleware содержит net/http мидлвары HTTP-слоя auth-ядра: request id,
// логирование, recover, таймаут запроса и проверку bearer-токена.
package middleware

import (
	"context"
	"net/http"
	"time"
)

// Middleware - стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвары к обработчику; первый в списке - внешний.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// Timeout ограничивает обработку запроса сроком d. Более ранний deadline
// родительского контекста сохраняется. При d<=0 обработчик не оборачивается.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
