// cache содержит эфемерное хранилище ключ-значение с TTL (Redis или память)
// и построенные поверх него компоненты: blacklist отозванных токенов
// и брокер OTP-сессий.
package cache

import (
	"context"
	"time"
)

// Store - минимальный контракт эфемерного хранилища.
// Запись по ключу видна следующему чтению того же ключа.
type Store interface {
	// Set сохраняет значение с TTL, перезаписывая прежнее.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete атомарно удаляет ключ и сообщает, существовал ли он.
	// Из конкурентных Delete одного ключа true получает ровно один.
	Delete(ctx context.Context, key string) (bool, error)
	// Close освобождает ресурсы.
	Close() error
}
