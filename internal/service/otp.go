package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/pkg/log"
	"github.com/pribylovaa/realty-auth/internal/pkg/redact"
	"github.com/pribylovaa/realty-auth/internal/storage"
)

const defaultOTPLength = 4

// Назначения OTP-сессий.
const (
	PurposeLogin = "login"
	PurposeReset = "reset"
)

// OTPSender доставляет код пользователю (SMS-шлюз и т.п.).
type OTPSender interface {
	Send(ctx context.Context, phone, code, purpose string) error
}

// LogSender пишет код в debug-лог. Подходит только для local/dev.
type LogSender struct{}

// Send реализует OTPSender.
func (LogSender) Send(ctx context.Context, phone, code, purpose string) error {
	log.From(ctx).Debug("otp_sent",
		"telephone", redact.Phone(phone),
		"purpose", purpose,
		"code", code,
	)

	return nil
}

// OTPChallenge - результат старта OTP-сессии.
type OTPChallenge struct {
	// Code заполнен только при otp.expose_code.
	Code      string
	ExpiresIn time.Duration
}

// OTPLoginResult - результат подтверждения входа по OTP.
type OTPLoginResult struct {
	User      *models.User
	Bundle    *models.TokenBundle
	IsNewUser bool
}

// StartOTPLogin начинает вход по телефону. Повторный вызов заменяет
// действующую сессию новым кодом.
func (s *Service) StartOTPLogin(ctx context.Context, phone string) (*OTPChallenge, error) {
	const op = "service.otp.StartOTPLogin"

	ch, err := s.startOTP(ctx, phone, PurposeLogin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}

// VerifyOTPLogin подтверждает вход по телефону и коду.
// Несовпадение кода оставляет сессию активной. Токены выпускает только
// вызов, который сам погасил сессию: из конкурентных проверок одного
// кода успешна ровно одна.
func (s *Service) VerifyOTPLogin(ctx context.Context, phone, code string) (*OTPLoginResult, error) {
	const op = "service.otp.VerifyOTPLogin"

	phone, err := validatePhone(phone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.verifyOTP(ctx, phone, code, PurposeLogin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnknownIdentity)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Blocked {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountBlocked)
	}

	if err := s.otp.Consume(ctx, otpKey(phone, PurposeLogin)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.OTP(PurposeLogin, "consumed")

	bundle, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &OTPLoginResult{
		User:      user,
		Bundle:    bundle,
		IsNewUser: sess.IsNewUser,
	}, nil
}

// StartPasswordReset отправляет код сброса пароля на телефон.
func (s *Service) StartPasswordReset(ctx context.Context, phone string) (*OTPChallenge, error) {
	const op = "service.otp.StartPasswordReset"

	ch, err := s.startOTP(ctx, phone, PurposeReset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}

// ConfirmPasswordReset проверяет код, задаёт новый пароль и отзывает
// все действующие сессии пользователя.
func (s *Service) ConfirmPasswordReset(ctx context.Context, phone, code, newPassword string) error {
	const op = "service.otp.ConfirmPasswordReset"

	phone, err := validatePhone(phone)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.verifyOTP(ctx, phone, code, PurposeReset)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Пароль меняет только вызов, погасивший сессию.
	if err := s.otp.Consume(ctx, otpKey(phone, PurposeReset)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.OTP(PurposeReset, "consumed")

	if err := s.setPassword(ctx, sess.UserID, newPassword); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnknownIdentity)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.RevokeAllSessions(ctx, sess.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("password_reset", slogUser(sess.UserID))

	return nil
}

func (s *Service) startOTP(ctx context.Context, rawPhone, purpose string) (*OTPChallenge, error) {
	phone, err := validatePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.UserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPhoneNotRegistered
		}

		return nil, err
	}

	if user.Blocked {
		return nil, ErrAccountBlocked
	}

	code, err := generateCode(s.otpCfg.Length)
	if err != nil {
		return nil, err
	}

	key := otpKey(phone, purpose)
	if err := s.otp.Start(ctx, key, code, user.ID, user.Email == ""); err != nil {
		return nil, err
	}

	if err := s.sender.Send(ctx, phone, code, purpose); err != nil {
		if cerr := s.otp.Consume(ctx, key); cerr != nil && !errors.Is(cerr, ErrOTPExpiredOrMissing) {
			log.From(ctx).Warn("otp_cleanup_failed", "purpose", purpose, "err", cerr)
		}

		return nil, fmt.Errorf("send otp: %w", err)
	}

	s.metrics.OTP(purpose, "started")
	log.From(ctx).Info("otp_started",
		slogUser(user.ID),
		"telephone", redact.Phone(phone),
		"purpose", purpose,
	)

	ch := &OTPChallenge{ExpiresIn: s.otp.TTL()}
	if s.otpCfg.ExposeCode {
		ch.Code = code
	}

	return ch, nil
}

func (s *Service) verifyOTP(ctx context.Context, phone, code, purpose string) (*models.OTPSession, error) {
	sess, err := s.otp.Verify(ctx, otpKey(phone, purpose), code)
	switch {
	case errors.Is(err, ErrOTPMismatch):
		s.metrics.OTP(purpose, "mismatch")
	case errors.Is(err, ErrOTPExpiredOrMissing):
		s.metrics.OTP(purpose, "expired")
	case err == nil:
		s.metrics.OTP(purpose, "verified")
	}

	return sess, err
}

// otpKey: вход - сам телефон, сброс пароля - "reset:<телефон>".
func otpKey(phone, purpose string) string {
	if purpose == PurposeReset {
		return "reset:" + phone
	}

	return phone
}

// generateCode возвращает код из цифр 1-9 заданной длины.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = defaultOTPLength
	}

	digits := big.NewInt(9)
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, digits)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b[i] = byte('1' + n.Int64())
	}

	return string(b), nil
}
