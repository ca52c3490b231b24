package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
)

// RecordToken добавляет запись о выпуске токена.
// Повторная запись той же пары (user, token) ничего не меняет.
func (s *Storage) RecordToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.postgres.RecordToken"

	const query = `
		INSERT INTO user_token_logs (user_id, user_token, is_blocked)
		VALUES ($1, $2, FALSE)
		ON CONFLICT (user_id, user_token) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// BlockToken помечает токен заблокированным.
// Если записи нет (токен выпущен до журнала или запись при выпуске не удалась),
// вставляет сразу заблокированную. Повторный вызов - no-op.
func (s *Storage) BlockToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.postgres.BlockToken"

	const query = `
		INSERT INTO user_token_logs (user_id, user_token, is_blocked)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id, user_token) DO UPDATE
		SET is_blocked = TRUE, updated_at = now()
		WHERE user_token_logs.is_blocked = FALSE
	`

	if _, err := s.db.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ActiveTokens возвращает незаблокированные записи пользователя, выпущенные после since.
func (s *Storage) ActiveTokens(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.LedgerEntry, error) {
	const op = "storage.postgres.ActiveTokens"

	const query = `
		SELECT id, user_id, user_token, is_blocked, created_at, updated_at
		FROM user_token_logs
		WHERE user_id = $1 AND NOT is_blocked AND created_at > $2
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Token, &e.Blocked, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// BlockAllTokens блокирует все активные записи пользователя.
func (s *Storage) BlockAllTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.BlockAllTokens"

	const query = `
		UPDATE user_token_logs
		SET is_blocked = TRUE, updated_at = now()
		WHERE user_id = $1 AND NOT is_blocked
	`

	tag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
