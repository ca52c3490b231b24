package models

import "time"

// Principal - аутентифицированный вызывающий и токен, которым он представился.
type Principal struct {
	User      *User
	Token     string
	Kind      TokenKind
	ExpiresAt time.Time
}
