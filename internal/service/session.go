package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/config"
	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/pkg/log"
	"github.com/pribylovaa/realty-auth/internal/pkg/redact"
)

// IssueSession выпускает токены для user согласно auth.mode и записывает
// каждый выпущенный токен в журнал. Ошибка журнала не прерывает выпуск.
func (s *Service) IssueSession(ctx context.Context, user *models.User) (*models.TokenBundle, error) {
	const op = "service.session.IssueSession"

	now := s.now().UTC()
	sub := user.ID.String()

	if s.cfg.Mode == config.ModeSingle {
		tok, exp, err := s.codec.Issue(sub, models.KindSingle, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.record(ctx, user.ID, models.KindSingle, tok)

		return &models.TokenBundle{
			AccessToken:     tok,
			AccessKind:      models.KindSingle,
			AccessExpiresAt: exp,
		}, nil
	}

	access, accessExp, err := s.codec.Issue(sub, models.KindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := s.codec.Issue(sub, models.KindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.record(ctx, user.ID, models.KindAccess, access)
	s.record(ctx, user.ID, models.KindRefresh, refresh)

	return &models.TokenBundle{
		AccessToken:      access,
		AccessKind:       models.KindAccess,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// record пишет токен в журнал; сбой только логируется.
func (s *Service) record(ctx context.Context, userID uuid.UUID, kind models.TokenKind, tok string) {
	s.metrics.TokenIssued(string(kind))

	if err := s.storage.RecordToken(ctx, userID, tok); err != nil {
		s.metrics.LedgerFailure("record")
		log.From(ctx).Warn("ledger_record_failed",
			slogUser(userID),
			"kind", string(kind),
			"token", redact.Token(tok),
			"err", err,
		)
	}
}

// Logout отзывает token пользователя: blacklist и журнал.
// Успех только если обе записи выполнены; при частичном сбое
// возвращаются все ошибки.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "service.session.Logout"

	if userID == uuid.Nil || token == "" {
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if err := s.revoke(ctx, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Revoked("logout", 1)
	log.From(ctx).Info("logout", slogUser(userID))

	return nil
}

// Refresh обменивает refresh-токен на новый набор токенов.
// Предъявленный refresh-токен отзывается до выпуска нового набора.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenBundle, error) {
	const op = "service.session.Refresh"

	if refreshToken == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	claims, id, err := s.verify(ctx, refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind != models.KindRefresh {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	user, err := s.identity(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Blocked {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountBlocked)
	}

	if err := s.revoke(ctx, user.ID, refreshToken); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Revoked("refresh", 1)

	bundle, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, bundle, nil
}

// RevokeAllSessions отзывает все действующие токены пользователя:
// активные записи журнала за наибольший срок жизни токена попадают
// в blacklist, затем блокируются в журнале. Возвращает число отозванных.
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "service.session.RevokeAllSessions"

	since := s.now().UTC().Add(-s.cfg.MaxTokenTTL())

	entries, err := s.storage.ActiveTokens(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, e := range entries {
		if err := s.blacklistToken(ctx, e.Token); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	n, err := s.storage.BlockAllTokens(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Revoked("revoke_all", len(entries))
	log.From(ctx).Info("sessions_revoked",
		slogUser(userID),
		"blacklisted", len(entries),
		"ledger_blocked", n,
	)

	return len(entries), nil
}

// RevokeToken отзывает конкретный токен пользователя (операторская команда).
func (s *Service) RevokeToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "service.session.RevokeToken"

	if err := s.revoke(ctx, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Revoked("operator", 1)
	log.From(ctx).Info("token_revoked", slogUser(userID), "token", redact.Token(token))

	return nil
}

// revoke пишет токен в blacklist и блокирует его в журнале.
// Вторая запись выполняется даже при сбое первой.
func (s *Service) revoke(ctx context.Context, userID uuid.UUID, token string) error {
	var errs []error

	if err := s.blacklistToken(ctx, token); err != nil {
		errs = append(errs, err)
	}

	if err := s.storage.BlockToken(ctx, userID, token); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// blacklistToken держит запись об отзыве не меньше остатка жизни токена.
// Нераспознанный или истёкший токен получает обычный ttl.
func (s *Service) blacklistToken(ctx context.Context, token string) error {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return s.blacklist.Add(ctx, token)
	}

	return s.blacklist.AddUntil(ctx, token, claims.ExpiresAt)
}
