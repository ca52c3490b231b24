package cache

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
)

// DefaultOTPTTL - время жизни OTP-сессии с момента Start.
const DefaultOTPTTL = 5 * time.Minute

const otpPrefix = "otp:"

var (
	// ErrOTPMismatch - код не совпал; сессия остаётся активной.
	ErrOTPMismatch = errors.New("otp mismatch")
	// ErrOTPExpiredOrMissing - сессии нет: не начата, истекла или погашена.
	ErrOTPExpiredOrMissing = errors.New("otp expired or missing")
)

// OTPBroker хранит одну активную OTP-сессию на ключ (телефон или reset-идентификатор).
//
// Жизненный цикл: absent -> pending (Start) -> consumed (Consume) | expired (TTL).
// Повторный Start всегда переинициализирует сессию.
type OTPBroker struct {
	store Store
	ttl   time.Duration
}

// NewOTPBroker создаёт брокер; ttl<=0 заменяется DefaultOTPTTL.
func NewOTPBroker(store Store, ttl time.Duration) *OTPBroker {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}

	return &OTPBroker{store: store, ttl: ttl}
}

// TTL возвращает время жизни сессии.
func (b *OTPBroker) TTL() time.Duration { return b.ttl }

// Start создаёт (или перезаписывает) сессию для key.
func (b *OTPBroker) Start(ctx context.Context, key, code string, userID uuid.UUID, isNewUser bool) error {
	const op = "cache.OTPBroker.Start"

	raw, err := json.Marshal(models.OTPSession{Code: code, UserID: userID, IsNewUser: isNewUser})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := b.store.Set(ctx, otpPrefix+key, raw, b.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Verify сверяет код. При несовпадении сессия не удаляется.
func (b *OTPBroker) Verify(ctx context.Context, key, code string) (*models.OTPSession, error) {
	const op = "cache.OTPBroker.Verify"

	raw, ok, err := b.store.Get(ctx, otpPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrOTPExpiredOrMissing)
	}

	var sess models.OTPSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if subtle.ConstantTimeCompare([]byte(sess.Code), []byte(code)) != 1 {
		return nil, fmt.Errorf("%s: %w", op, ErrOTPMismatch)
	}

	return &sess, nil
}

// Consume гасит сессию после успешной проверки. Из конкурентных вызовов
// для одной сессии успешен ровно один; остальные получают
// ErrOTPExpiredOrMissing.
func (b *OTPBroker) Consume(ctx context.Context, key string) error {
	const op = "cache.OTPBroker.Consume"

	removed, err := b.store.Delete(ctx, otpPrefix+key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !removed {
		return fmt.Errorf("%s: %w", op, ErrOTPExpiredOrMissing)
	}

	return nil
}
