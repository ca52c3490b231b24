package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/pkg/log"
	"github.com/pribylovaa/realty-auth/internal/storage"
)

// BlockUser блокирует аккаунт и отзывает все его сессии.
// Возвращает число отозванных токенов.
func (s *Service) BlockUser(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "service.admin.BlockUser"

	if err := s.setBlocked(ctx, userID, true); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.RevokeAllSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_blocked", slogUser(userID), "revoked", n)

	return n, nil
}

// UnblockUser снимает блокировку. Ранее отозванные токены остаются отозванными.
func (s *Service) UnblockUser(ctx context.Context, userID uuid.UUID) error {
	const op = "service.admin.UnblockUser"

	if err := s.setBlocked(ctx, userID, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_unblocked", slogUser(userID))

	return nil
}

func (s *Service) setBlocked(ctx context.Context, userID uuid.UUID, blocked bool) error {
	if err := s.storage.SetBlocked(ctx, userID, blocked); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnknownIdentity
		}

		return err
	}

	return nil
}
