// password хэширует и проверяет пароли. Поддерживаются bcrypt и argon2id;
// проверка определяет алгоритм по формату сохранённого хэша, поэтому смена
// алгоритма в конфиге не ломает вход со старыми паролями.
package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// ErrUnknownAlgorithm - неизвестный алгоритм в конфиге или формат хэша.
var ErrUnknownAlgorithm = errors.New("unknown password hash algorithm")

// Hasher - хэширование нового пароля и проверка пароля против хэша.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// New возвращает Hasher для алгоритма из конфига.
// bcryptCost<=0 заменяется bcrypt.DefaultCost.
func New(algorithm string, bcryptCost int) (Hasher, error) {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	switch algorithm {
	case AlgorithmBcrypt, "":
		return &hasher{hash: bcryptHash(bcryptCost)}, nil
	case AlgorithmArgon2id:
		return &hasher{hash: argonHash(argon2id.DefaultParams)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

type hasher struct {
	hash func(string) (string, error)
}

func (h *hasher) Hash(password string) (string, error) {
	const op = "password.Hash"

	out, err := h.hash(password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Compare проверяет пароль. Несовпадение - (false, nil), ошибка - только
// для повреждённого или неизвестного формата хэша.
func (h *hasher) Compare(hash, password string) (bool, error) {
	const op = "password.Compare"

	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(password, hash)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return ok, nil

	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("%s: %w", op, ErrUnknownAlgorithm)
	}
}

func bcryptHash(cost int) func(string) (string, error) {
	return func(pw string) (string, error) {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func argonHash(p *argon2id.Params) func(string) (string, error) {
	return func(pw string) (string, error) {
		return argon2id.CreateHash(pw, p)
	}
}
