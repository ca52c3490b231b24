// service содержит бизнес-логику auth-ядра: проверку bearer-токенов,
// выпуск сессий с записью в журнал, вход по паролю и по OTP, logout
// и отзыв сессий.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасных зависимостях.
//   - Ошибки возвращаются обёрнутыми ("op: err") и маппятся транспортом
//     на HTTP-коды (см. комментарии к переменным ошибок ниже).
//   - Сбой записи в журнал при выпуске токена логируется и не ломает вход.
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/realty-auth/internal/cache"
	"github.com/pribylovaa/realty-auth/internal/config"
	"github.com/pribylovaa/realty-auth/internal/metrics"
	"github.com/pribylovaa/realty-auth/internal/password"
	"github.com/pribylovaa/realty-auth/internal/storage"
	"github.com/pribylovaa/realty-auth/internal/token"
)

var (
	// ErrMalformedAuthHeader - заголовок Authorization не вида "Bearer <token>".
	// Транспорт: HTTP 401.
	ErrMalformedAuthHeader = errors.New("malformed authorization header")

	// ErrTokenBlacklisted - токен отозван (logout/блокировка).
	// Транспорт: HTTP 401.
	ErrTokenBlacklisted = errors.New("token blacklisted")

	// ErrExpiredToken - срок действия истёк. Транспорт: HTTP 401.
	ErrExpiredToken = token.ErrExpired

	// ErrMalformedToken - неверная подпись, структура или вид токена.
	// Транспорт: HTTP 401.
	ErrMalformedToken = token.ErrMalformed

	// ErrMissingSubject - в токене нет идентификатора пользователя.
	// Транспорт: HTTP 401.
	ErrMissingSubject = token.ErrMissingSubject

	// ErrUnknownIdentity - пользователь из токена (или по телефону) не найден.
	// Транспорт: HTTP 401.
	ErrUnknownIdentity = errors.New("unknown identity")

	// ErrPhoneNotRegistered - OTP запрошен для телефона без учётной записи.
	// Транспорт: HTTP 403.
	ErrPhoneNotRegistered = errors.New("phone number is not registered")

	// ErrOTPMismatch - код не совпал, сессия остаётся. Транспорт: HTTP 401.
	ErrOTPMismatch = cache.ErrOTPMismatch

	// ErrOTPExpiredOrMissing - OTP-сессии нет. Транспорт: HTTP 400.
	ErrOTPExpiredOrMissing = cache.ErrOTPExpiredOrMissing

	// ErrDuplicateCredential - email или телефон уже заняты.
	// Транспорт: HTTP 409.
	ErrDuplicateCredential = errors.New("email or telephone already registered")

	// ErrAccountBlocked - аккаунт заблокирован. Транспорт: HTTP 403.
	ErrAccountBlocked = errors.New("account blocked")

	// ErrInvalidCredentials - пара email/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidEmail - некорректный email. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPhone - телефон не из 10 цифр. Транспорт: HTTP 400.
	ErrInvalidPhone = errors.New("invalid telephone number")

	// ErrWeakPassword - пароль не удовлетворяет политике. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword - пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrUnauthenticated - операция требует вызывающего. Транспорт: HTTP 401.
	ErrUnauthenticated = errors.New("authentication required")
)

// Deps - зависимости Service.
type Deps struct {
	Storage   storage.Storage
	Codec     *token.Codec
	Blacklist *cache.Blacklist
	OTP       *cache.OTPBroker
	Hasher    password.Hasher
}

// Service описывает бизнес-логику auth-ядра.
type Service struct {
	storage   storage.Storage
	codec     *token.Codec
	blacklist *cache.Blacklist
	otp       *cache.OTPBroker
	hasher    password.Hasher
	sender    OTPSender
	metrics   *metrics.Metrics

	cfg    config.AuthConfig
	otpCfg config.OTPConfig
	now    func() time.Time
}

// New создаёт новый экземпляр Service. Доставка кодов по умолчанию - LogSender.
func New(deps Deps, cfg config.AuthConfig, otpCfg config.OTPConfig) *Service {
	if otpCfg.Length <= 0 {
		otpCfg.Length = defaultOTPLength
	}

	return &Service{
		storage:   deps.Storage,
		codec:     deps.Codec,
		blacklist: deps.Blacklist,
		otp:       deps.OTP,
		hasher:    deps.Hasher,
		sender:    LogSender{},
		cfg:       cfg,
		otpCfg:    otpCfg,
		now:       time.Now,
	}
}

// SetOTPSender устанавливает канал доставки OTP-кодов.
func (s *Service) SetOTPSender(sender OTPSender) {
	s.sender = sender
}

// SetMetrics устанавливает счётчики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
