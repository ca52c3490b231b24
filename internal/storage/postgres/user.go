package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/storage"
)

var userColumns = []string{
	"id", "email", "telephone", "first_name", "last_name",
	"password_hash", "is_blocked", "user_type", "created_at", "updated_at",
}

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			nullIfEmpty(user.Email),
			user.Phone,
			user.FirstName,
			user.LastName,
			user.PasswordHash,
			user.Blocked,
			user.UserType,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByID", sq.Eq{"id": id})
}

// UserByEmail находит пользователя по email (CITEXT, без учёта регистра).
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByEmail", sq.Eq{"email": email})
}

// UserByPhone находит пользователя по телефону.
func (s *Storage) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByPhone", sq.Eq{"telephone": phone})
}

// UpdatePassword заменяет хэш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.updateUser(ctx, "storage.postgres.UpdatePassword", id, "password_hash", passwordHash)
}

// SetBlocked меняет флаг блокировки пользователя.
func (s *Storage) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	return s.updateUser(ctx, "storage.postgres.SetBlocked", id, "is_blocked", blocked)
}

func (s *Storage) userBy(ctx context.Context, op string, where sq.Eq) (*models.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		u     models.User
		email *string
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&email,
		&u.Phone,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.Blocked,
		&u.UserType,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if email != nil {
		u.Email = *email
	}

	return &u, nil
}

func (s *Storage) updateUser(ctx context.Context, op string, id uuid.UUID, column string, value any) error {
	query, args, err := psql.Update("users").
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
