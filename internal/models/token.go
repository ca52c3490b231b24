package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind - вид выпущенного токена.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
	// KindSingle - единый долгоживущий токен старых клиентов.
	KindSingle TokenKind = "single"
)

// Valid сообщает, известен ли вид токена.
func (k TokenKind) Valid() bool {
	switch k {
	case KindAccess, KindRefresh, KindSingle:
		return true
	default:
		return false
	}
}

// TokenBundle - набор токенов, выдаваемый при входе/регистрации.
// В режиме single заполнены только AccessToken/AccessExpiresAt.
type TokenBundle struct {
	AccessToken      string
	AccessKind       TokenKind
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LedgerEntry - запись журнала выпущенных токенов.
type LedgerEntry struct {
	ID        int64
	UserID    uuid.UUID
	Token     string
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
