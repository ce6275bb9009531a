package hasher

import (
	"errors"
	"fmt"

	"saas_backend/internal/lib/apperr"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes предел bcrypt: более длинный пароль не хешируется.
const MaxPasswordBytes = 72

type Hasher struct {
	cost int
}

// * New создает хешер bcrypt. Стоимость вне допустимого диапазона заменяется на bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plain string) ([]byte, error) {
	const op = "hasher.Hash"

	if len(plain) > MaxPasswordBytes {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "password must be at most 72 bytes"))
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.ErrValidation, "password must be at most 72 bytes"))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return digest, nil
}

// * Verify никогда не возвращает ошибку: битый хеш означает несовпадение.
func (h *Hasher) Verify(plain string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plain)) == nil
}
