package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/realty-auth/internal/http/handlers"
	"github.com/pribylovaa/realty-auth/internal/http/middleware"
)

// Service - всё, что роутеру нужно от auth-ядра.
type Service interface {
	handlers.AuthService
	middleware.Authenticator
}

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой - роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, svc, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, svc, h)
	return root
}

// registerRoutes - единая точка регистрации всех REST-эндпойнтов.
// Токен проверяется только на защищённых маршрутах: на refresh клиент
// часто приходит с уже истёкшим access-токеном в заголовке.
func registerRoutes(r chi.Router, auth middleware.Authenticator, h *handlers.Handlers) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/verify-otp", h.VerifyOTP)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/password-reset", h.PasswordReset)
	r.Post("/auth/password-reset/confirm", h.PasswordResetConfirm)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(auth), middleware.RequireAuth())

		r.Post("/auth/logout", h.Logout)
		r.Get("/users/profile", h.Profile)
	})
}
