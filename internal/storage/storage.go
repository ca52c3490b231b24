package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (email/телефон).
	ErrAlreadyExists = errors.New("already exists")
)

// CredentialStorage - учётные записи пользователей.
type CredentialStorage interface {
	// SaveUser создаёт пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByPhone находит пользователя по телефону.
	UserByPhone(ctx context.Context, phone string) (*models.User, error)
	// UpdatePassword заменяет хэш пароля.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// SetBlocked меняет флаг блокировки.
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
}

// LedgerStorage - журнал выпущенных токенов (только добавление и блокировка).
type LedgerStorage interface {
	// RecordToken добавляет запись о выпуске токена.
	RecordToken(ctx context.Context, userID uuid.UUID, token string) error
	// BlockToken помечает токен заблокированным, создавая запись при её отсутствии.
	BlockToken(ctx context.Context, userID uuid.UUID, token string) error
	// ActiveTokens возвращает незаблокированные записи, выпущенные после since.
	ActiveTokens(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.LedgerEntry, error)
	// BlockAllTokens блокирует все записи пользователя и возвращает их число.
	BlockAllTokens(ctx context.Context, userID uuid.UUID) (int64, error)
}

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks github.com/pribylovaa/realty-auth/internal/storage Storage

// Storage задаёт контракт работы с БД.
type Storage interface {
	CredentialStorage
	LedgerStorage
	Close()
}
