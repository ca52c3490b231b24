package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/service"
)

// AuthService - операции auth-ядра, доступные HTTP-слою.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, *models.TokenBundle, error)
	Login(ctx context.Context, email, password string) (*models.User, *models.TokenBundle, error)
	StartOTPLogin(ctx context.Context, phone string) (*service.OTPChallenge, error)
	VerifyOTPLogin(ctx context.Context, phone, code string) (*service.OTPLoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenBundle, error)
	Logout(ctx context.Context, userID uuid.UUID, token string) error
	StartPasswordReset(ctx context.Context, phone string) (*service.OTPChallenge, error)
	ConfirmPasswordReset(ctx context.Context, phone, code, newPassword string) error
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc AuthService
}

func New(svc AuthService) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля
// и мусор после объекта.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return err
	}

	if dec.More() {
		return errors.New("unexpected data after json object")
	}

	return nil
}

const maxBodyBytes = 64 << 10
