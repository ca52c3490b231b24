package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/storage"
	"github.com/pribylovaa/realty-auth/internal/token"
)

// Authenticate проверяет значение заголовка Authorization.
//
// Пустой заголовок означает анонимный запрос: (nil, nil). Иначе проверки
// идут строго по порядку и первая неудачная прерывает разбор: формат
// заголовка, blacklist, подпись и срок, subject, наличие пользователя,
// флаг блокировки (если включён auth.check_blocked_on_request).
// Refresh-токен для аутентификации запросов не принимается.
func (s *Service) Authenticate(ctx context.Context, header string) (*models.Principal, error) {
	const op = "service.gate.Authenticate"

	if header == "" {
		s.metrics.Authentication("anonymous")
		return nil, nil
	}

	p, err := s.authenticate(ctx, header)
	s.metrics.Authentication(resultLabel(err))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Service) authenticate(ctx context.Context, header string) (*models.Principal, error) {
	raw, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, id, err := s.verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	if claims.Kind == models.KindRefresh {
		return nil, ErrMalformedToken
	}

	user, err := s.identity(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cfg.CheckBlockedOnRequest && user.Blocked {
		return nil, ErrAccountBlocked
	}

	return &models.Principal{
		User:      user,
		Token:     raw,
		Kind:      claims.Kind,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// verify проходит общую часть проверки сырого токена:
// blacklist -> подпись и срок -> subject.
func (s *Service) verify(ctx context.Context, raw string) (*token.Claims, uuid.UUID, error) {
	revoked, err := s.blacklist.Contains(ctx, raw)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if revoked {
		return nil, uuid.Nil, ErrTokenBlacklisted
	}

	claims, err := s.codec.Decode(raw)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, ErrUnknownIdentity
	}

	return claims, id, nil
}

// identity загружает пользователя из токена.
func (s *Service) identity(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownIdentity
		}

		return nil, err
	}

	return user, nil
}

// bearerToken разбирает "Bearer <token>": ровно две части через пробел,
// схема без учёта регистра, непустой токен.
func bearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrMalformedAuthHeader
	}

	return parts[1], nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedAuthHeader):
		return "malformed_header"
	case errors.Is(err, ErrTokenBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrMissingSubject):
		return "missing_subject"
	case errors.Is(err, ErrUnknownIdentity):
		return "unknown_identity"
	case errors.Is(err, ErrAccountBlocked):
		return "blocked"
	default:
		return "error"
	}
}
