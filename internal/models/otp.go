package models

import "github.com/google/uuid"

// OTPSession - ожидающая подтверждения одноразовая сессия.
type OTPSession struct {
	Code      string    `json:"otp"`
	UserID    uuid.UUID `json:"id"`
	IsNewUser bool      `json:"is_new_user"`
}
