package models

import (
	"time"

	"github.com/google/uuid"
)

// User - учётная запись (identity) пользователя.
// Email может быть пустым у аккаунтов, созданных только по телефону.
type User struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	PasswordHash string
	Blocked      bool
	UserType     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName возвращает "Имя Фамилия" без лишних пробелов.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
