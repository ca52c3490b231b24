package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/pribylovaa/realty-auth/internal/models"
)

// flexString принимает и строку, и число: старые клиенты шлют otp числом.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	*s = flexString(n.String())

	return nil
}

type registerRequest struct {
	Email     string     `json:"email"`
	Telephone flexString `json:"telephone"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstname"`
	LastName  string     `json:"lastname"`
	UserType  string     `json:"user_type"`
}

type loginRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Telephone flexString `json:"telephone"`
	Platform  string     `json:"platform"`
}

type verifyOTPRequest struct {
	Telephone flexString `json:"telephone"`
	OTP       flexString `json:"otp"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Telephone flexString `json:"telephone"`
}

type passwordResetConfirmRequest struct {
	Telephone   flexString `json:"telephone"`
	OTP         flexString `json:"otp"`
	NewPassword string     `json:"new_password"`
}

type tokensResponse struct {
	Token            string     `json:"token"`
	TokenKind        string     `json:"token_kind"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RefreshToken     string     `json:"refresh_token,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

func tokensFrom(b *models.TokenBundle) tokensResponse {
	out := tokensResponse{
		Token:     b.AccessToken,
		TokenKind: string(b.AccessKind),
		ExpiresAt: b.AccessExpiresAt,
	}

	if b.RefreshToken != "" {
		exp := b.RefreshExpiresAt
		out.RefreshToken = b.RefreshToken
		out.RefreshExpiresAt = &exp
	}

	return out
}

type registerResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	tokensResponse
}

type loginResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	tokensResponse
}

type otpSentResponse struct {
	Message      string `json:"message"`
	IsOTPSent    bool   `json:"is_otp_sent"`
	IsRegistered bool   `json:"is_registered"`
	OTP          string `json:"otp,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

type verifyOTPResponse struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	IsNewUser bool   `json:"is_new_user"`
	tokensResponse
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Telephone string    `json:"telephone"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Username  string    `json:"username"`
	UserType  string    `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
}

func profileFrom(u *models.User) profileResponse {
	return profileResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Telephone: u.Phone,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.FullName(),
		UserType:  u.UserType,
		CreatedAt: u.CreatedAt,
	}
}
