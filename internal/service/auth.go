package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/pkg/log"
	"github.com/pribylovaa/realty-auth/internal/pkg/redact"
	"github.com/pribylovaa/realty-auth/internal/storage"
)

// DefaultUserType - тип учётной записи, если клиент его не передал.
const DefaultUserType = "user"

var phoneRe = regexp.MustCompile(`^[1-9][0-9]{9}$`)

// RegisterInput - данные регистрации.
type RegisterInput struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
	UserType  string
}

// Register создаёт пользователя и выпускает ему сессию.
// Email, телефон и пароль обязательны; занятый email или телефон
// возвращает ErrDuplicateCredential.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *models.TokenBundle, error) {
	const op = "service.auth.Register"

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	phone, err := validatePhone(in.Phone)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureFree(ctx, email, phone); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	userType := strings.TrimSpace(in.UserType)
	if userType == "" {
		userType = DefaultUserType
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Phone:        phone,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		UserType:     userType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrDuplicateCredential)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slogUser(user.ID),
		"email", redact.Email(email),
		"telephone", redact.Phone(phone),
	)

	bundle, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, bundle, nil
}

// Login выполняет вход по email и паролю.
// Неизвестный email и неверный пароль неразличимы (ErrInvalidCredentials);
// блокировка проверяется только после верного пароля.
func (s *Service) Login(ctx context.Context, email, pw string) (*models.User, *models.TokenBundle, error) {
	const op = "service.auth.Login"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if pw == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := s.verifyPassword(user, pw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if user.Blocked {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountBlocked)
	}

	bundle, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, bundle, nil
}

// ensureFree проверяет, что email и телефон не заняты.
func (s *Service) ensureFree(ctx context.Context, email, phone string) error {
	_, err := s.storage.UserByEmail(ctx, email)
	if err == nil {
		return ErrDuplicateCredential
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	_, err = s.storage.UserByPhone(ctx, phone)
	if err == nil {
		return ErrDuplicateCredential
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return nil
}

// verifyPassword сверяет пароль с хэшем пользователя.
// У аккаунтов без пароля (только телефон) вход по паролю невозможен.
func (s *Service) verifyPassword(user *models.User, pw string) (bool, error) {
	if user.PasswordHash == "" {
		return false, nil
	}

	return s.hasher.Compare(user.PasswordHash, pw)
}

// setPassword хэширует и сохраняет новый пароль.
func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, pw string) error {
	if err := validatePassword(pw); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return err
	}

	return s.storage.UpdatePassword(ctx, userID, hash)
}

// validateEmail проверяет базовый формат email и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}

// validatePhone проверяет 10-значный номер без ведущего нуля.
func validatePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if !phoneRe.MatchString(phone) {
		return "", ErrInvalidPhone
	}

	return phone, nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	if len(pw) == 0 {
		return ErrEmptyPassword
	}

	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return ErrWeakPassword
	}

	return nil
}

func slogUser(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}
