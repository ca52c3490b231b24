// app собирает зависимости auth-ядра из конфигурации: БД, кэш, кодек
// токенов, хэшер паролей и Service. Используется сервером и authctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/realty-auth/internal/cache"
	"github.com/pribylovaa/realty-auth/internal/config"
	"github.com/pribylovaa/realty-auth/internal/password"
	"github.com/pribylovaa/realty-auth/internal/service"
	"github.com/pribylovaa/realty-auth/internal/storage/postgres"
	"github.com/pribylovaa/realty-auth/internal/token"
)

// App агрегирует собранные зависимости.
type App struct {
	Service *service.Service
	Storage *postgres.Storage
	Cache   cache.Store
}

// New подключается к Postgres и кэшу, при необходимости применяет миграции
// и собирает Service. Для memory-бэкенда запускает janitor, живущий до ctx.Done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	const op = "app.New"

	codec, err := token.New(token.Config{
		Secret:     cfg.Auth.JWTSecret,
		Prefix:     cfg.Auth.TokenPrefix,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		SingleTTL:  cfg.Auth.SingleTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: token codec: %w", op, err)
	}

	hasher, err := password.New(cfg.Password.Algorithm, cfg.Password.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: password hasher: %w", op, err)
	}

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("postgres_connected")

	if cfg.DB.AutoMigrate {
		if err := str.Migrate(ctx, log); err != nil {
			str.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("migrations_applied")
	}

	store, err := openCache(ctx, cfg, log)
	if err != nil {
		str.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc := service.New(service.Deps{
		Storage:   str,
		Codec:     codec,
		Blacklist: cache.NewBlacklist(store, cfg.Auth.BlacklistTTL),
		OTP:       cache.NewOTPBroker(store, cfg.OTP.TTL),
		Hasher:    hasher,
	}, cfg.Auth, cfg.OTP)

	return &App{Service: svc, Storage: str, Cache: store}, nil
}

// Close освобождает кэш и пул соединений.
func (a *App) Close() error {
	err := a.Cache.Close()
	a.Storage.Close()
	if err != nil {
		return fmt.Errorf("app.Close: %w", err)
	}

	return nil
}

// Ready проверяет доступность БД (для /healthz).
func (a *App) Ready(ctx context.Context) error {
	return a.Storage.Ping(ctx)
}

func openCache(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		store, err := cache.NewRedisStore(ctx, cfg.Redis.RedisURL, cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		log.Info("cache_backend", slog.String("backend", config.CacheRedis))
		return store, nil

	case config.CacheMemory:
		mem := cache.NewMemoryStore()
		startSweeper(ctx, mem, log, cfg.Cache.SweepInterval)
		// Отзывы и OTP-сессии не переживают рестарт и не видны другим репликам.
		log.Warn("cache_backend", slog.String("backend", config.CacheMemory))
		return mem, nil

	default:
		return nil, errors.New("unknown cache backend: " + cfg.Cache.Backend)
	}
}

// startSweeper периодически удаляет просроченные ключи memory-кэша.
func startSweeper(ctx context.Context, mem *cache.MemoryStore, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := mem.Sweep(); n > 0 {
					log.Debug("cache_sweep", slog.Int("removed", n))
				}
			}
		}
	}()
}
