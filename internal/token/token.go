// token кодирует и проверяет подписанные токены сессий.
//
// Формат: <prefix><JWS compact>, где prefix - литерал версии формата
// (по умолчанию "2f."), а JWS подписан HS512 общим секретом сервера.
// Полезная нагрузка строго типизирована: sub, iat, exp, kind и необязательный jti.
// Любые другие поля делают токен некорректным.
package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/realty-auth/internal/models"
)

// DefaultPrefix - текущая версия формата токена.
const DefaultPrefix = "2f."

var (
	// ErrMalformed - неверный префикс, структура, подпись или состав полей.
	ErrMalformed = errors.New("malformed token")
	// ErrExpired - срок действия истёк (подпись при этом корректна).
	ErrExpired = errors.New("token expired")
	// ErrMissingSubject - в токене нет sub.
	ErrMissingSubject = errors.New("token subject is missing")
)

// Config - параметры кодека.
type Config struct {
	Secret     string
	Prefix     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SingleTTL  time.Duration
}

// Claims - проверенное содержимое токена.
type Claims struct {
	ID        string
	Subject   string
	Kind      models.TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec выпускает и разбирает токены. Безопасен для конкурентного использования.
type Codec struct {
	secret []byte
	prefix string
	ttl    map[models.TokenKind]time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// New создаёт кодек. Пустой секрет недопустим.
func New(cfg Config) (*Codec, error) {
	const op = "token.New"

	if cfg.Secret == "" {
		return nil, fmt.Errorf("%s: empty secret", op)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	c := &Codec{
		secret: []byte(cfg.Secret),
		prefix: prefix,
		ttl: map[models.TokenKind]time.Duration{
			models.KindAccess:  cfg.AccessTTL,
			models.KindRefresh: cfg.RefreshTTL,
			models.KindSingle:  cfg.SingleTTL,
		},
		now: time.Now,
	}

	for kind, d := range c.ttl {
		if d <= 0 {
			return nil, fmt.Errorf("%s: non-positive ttl for %s token", op, kind)
		}
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)

	return c, nil
}

// TTL возвращает время жизни токена указанного вида.
func (c *Codec) TTL(kind models.TokenKind) time.Duration {
	return c.ttl[kind]
}

// Issue подписывает токен вида kind для subject, выпущенный в момент now.
// Возвращает строку токена и момент истечения.
func (c *Codec) Issue(subject string, kind models.TokenKind, now time.Time) (string, time.Time, error) {
	const op = "token.Issue"

	if !kind.Valid() {
		return "", time.Time{}, fmt.Errorf("%s: unknown kind %q", op, kind)
	}

	if subject == "" {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}

	iat := jwt.NewNumericDate(now.UTC())
	exp := jwt.NewNumericDate(now.UTC().Add(c.ttl[kind]))

	cl := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, cl).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return c.prefix + signed, exp.Time, nil
}

// Decode снимает префикс версии, проверяет подпись, срок и состав полей.
func (c *Codec) Decode(raw string) (*Claims, error) {
	const op = "token.Decode"

	body, ok := strings.CutPrefix(raw, c.prefix)
	if !ok || body == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	var cl claims
	if _, err := c.parser.ParseWithClaims(body, &cl, c.key); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	}

	if cl.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSubject)
	}

	return &Claims{
		ID:        cl.ID,
		Subject:   cl.Subject,
		Kind:      cl.Kind,
		IssuedAt:  cl.IssuedAt.Time.UTC(),
		ExpiresAt: cl.ExpiresAt.Time.UTC(),
	}, nil
}

func (c *Codec) key(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS512 {
		return nil, ErrMalformed
	}

	return c.secret, nil
}

type claims struct {
	Kind models.TokenKind `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// wireClaims - допустимый набор полей полезной нагрузки.
type wireClaims struct {
	ID        string           `json:"jti"`
	Subject   string           `json:"sub"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Kind      models.TokenKind `json:"kind"`
}

// UnmarshalJSON отвергает неизвестные поля и нераспознанный kind.
// Токены без kind (выпущенные до его появления) считаются single.
func (c *claims) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var w wireClaims
	if err := dec.Decode(&w); err != nil {
		return err
	}

	if w.IssuedAt == nil {
		return errors.New("iat is required")
	}

	switch {
	case w.Kind == "":
		w.Kind = models.KindSingle
	case !w.Kind.Valid():
		return fmt.Errorf("unknown kind %q", w.Kind)
	}

	*c = claims{
		Kind: w.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        w.ID,
			Subject:   w.Subject,
			IssuedAt:  w.IssuedAt,
			ExpiresAt: w.ExpiresAt,
		},
	}

	return nil
}
