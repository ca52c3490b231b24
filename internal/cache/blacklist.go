package cache

import (
	"context"
	"fmt"
	"time"
)

// DefaultBlacklistTTL - срок хранения записи об отзыве токена.
const DefaultBlacklistTTL = 7 * 24 * time.Hour

const blacklistPrefix = "bl:"

// Blacklist - быстрый кэш отозванных токенов. Ключ - сырая строка токена.
type Blacklist struct {
	store Store
	ttl   time.Duration
}

// NewBlacklist создаёт blacklist поверх store; ttl<=0 заменяется DefaultBlacklistTTL.
func NewBlacklist(store Store, ttl time.Duration) *Blacklist {
	if ttl <= 0 {
		ttl = DefaultBlacklistTTL
	}

	return &Blacklist{store: store, ttl: ttl}
}

// Add помечает токен отозванным на время ttl.
func (b *Blacklist) Add(ctx context.Context, token string) error {
	const op = "cache.Blacklist.Add"

	if err := b.set(ctx, token, b.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AddUntil помечает токен отозванным как минимум до expiresAt, но не короче ttl.
// Запись не должна истечь раньше самого токена.
func (b *Blacklist) AddUntil(ctx context.Context, token string, expiresAt time.Time) error {
	const op = "cache.Blacklist.AddUntil"

	ttl := b.ttl
	if left := time.Until(expiresAt); left > ttl {
		ttl = left
	}

	if err := b.set(ctx, token, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (b *Blacklist) set(ctx context.Context, token string, ttl time.Duration) error {
	return b.store.Set(ctx, blacklistPrefix+token, []byte{'1'}, ttl)
}

// Contains сообщает, отозван ли токен.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	const op = "cache.Blacklist.Contains"

	_, ok, err := b.store.Get(ctx, blacklistPrefix+token)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}
