// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Режимы выпуска токенов.
const (
	// ModePair - короткий access + долгий refresh.
	ModePair = "pair"
	// ModeSingle - один долгоживущий токен (legacy-клиенты).
	ModeSingle = "single"
)

// Бэкенды кэша.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config - корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
//
// Файл .env из рабочей директории подгружается в окружение до разбора,
// но не перетирает уже выставленные переменные.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	OTP      OTPConfig      `yaml:"otp"`
	Password PasswordConfig `yaml:"password"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig - таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig - сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenPrefix     string        `yaml:"token_prefix" env:"TOKEN_PREFIX" env-default:"2f."`
	Mode            string        `yaml:"mode" env:"AUTH_MODE" env-default:"pair"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	SingleTokenTTL  time.Duration `yaml:"single_token_ttl" env:"SINGLE_TOKEN_TTL" env-default:"168h"`
	BlacklistTTL    time.Duration `yaml:"blacklist_ttl" env:"BLACKLIST_TTL" env-default:"168h"`
	// CheckBlockedOnRequest включает проверку флага блокировки на каждом запросе.
	CheckBlockedOnRequest bool `yaml:"check_blocked_on_request" env:"CHECK_BLOCKED_ON_REQUEST" env-default:"false"`
}

// MaxTokenTTL - наибольшее время жизни среди всех видов токенов.
func (a AuthConfig) MaxTokenTTL() time.Duration {
	m := a.AccessTokenTTL
	for _, d := range []time.Duration{a.RefreshTokenTTL, a.SingleTokenTTL} {
		if d > m {
			m = d
		}
	}

	return m
}

// DBConfig - настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// RedisConfig - подключение к Redis (используется при cache.backend=redis).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// CacheConfig - выбор хранилища для blacklist и OTP-сессий.
type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"CACHE_BACKEND" env-default:"redis"`
	Prefix        string        `yaml:"prefix" env:"CACHE_PREFIX" env-default:"auth:"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"CACHE_SWEEP_INTERVAL" env-default:"1m"`
}

// OTPConfig - параметры одноразовых кодов.
type OTPConfig struct {
	TTL    time.Duration `yaml:"ttl" env:"OTP_TTL" env-default:"5m"`
	Length int           `yaml:"length" env:"OTP_LENGTH" env-default:"4"`
	// ExposeCode возвращает код в ответе API (только для local/dev без SMS-шлюза).
	ExposeCode bool `yaml:"expose_code" env:"OTP_EXPOSE_CODE" env-default:"false"`
}

// PasswordConfig - алгоритм хэширования паролей: bcrypt или argon2id.
type PasswordConfig struct {
	Algorithm  string `yaml:"algorithm" env:"PASSWORD_ALGORITHM" env-default:"bcrypt"`
	BcryptCost int    `yaml:"bcrypt_cost" env:"PASSWORD_BCRYPT_COST" env-default:"10"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file does not exist: %s", p)
			}

			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return validate(&cfg)
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

// validate проверяет перечислимые поля, которые cleanenv не умеет ограничивать.
func validate(cfg *Config) (*Config, error) {
	switch cfg.Auth.Mode {
	case ModePair, ModeSingle:
	default:
		return nil, fmt.Errorf("invalid auth.mode %q: want %q or %q", cfg.Auth.Mode, ModePair, ModeSingle)
	}

	switch cfg.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if cfg.Redis.RedisURL == "" {
			return nil, fmt.Errorf("redis.redis_url is required for cache.backend=%q", CacheRedis)
		}
	default:
		return nil, fmt.Errorf("invalid cache.backend %q", cfg.Cache.Backend)
	}

	if cfg.OTP.Length < 4 || cfg.OTP.Length > 6 {
		return nil, fmt.Errorf("invalid otp.length %d: want 4..6", cfg.OTP.Length)
	}

	// Запись об отзыве не должна пережить токен меньшей длины жизни.
	if cfg.Auth.BlacklistTTL < cfg.Auth.MaxTokenTTL() {
		return nil, fmt.Errorf("invalid auth.blacklist_ttl %s: must be at least the longest token ttl %s",
			cfg.Auth.BlacklistTTL, cfg.Auth.MaxTokenTTL())
	}

	return cfg, nil
}
