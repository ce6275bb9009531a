package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrExpired            = errors.New("token expired")
	ErrUnsupportedAlg     = errors.New("unsupported signing algorithm")
	ErrEmptySigningSecret = errors.New("empty signing secret")
)

// * Codec подписывает и проверяет плоские наборы claims одним секретом сервера.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

type Option func(*Codec)

// * WithTimeFunc подменяет часы, по которым проверяется exp.
func WithTimeFunc(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(secret, alg string, opts ...Option) (*Codec, error) {
	const op = "jwt.NewCodec"

	if secret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySigningSecret)
	}

	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedAlg, alg)
	}

	c := &Codec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Codec) Encode(claims map[string]any) (string, error) {
	const op = "jwt.Codec.Encode"

	token := jwt.NewWithClaims(c.method, jwt.MapClaims(claims))

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// * Decode проверяет подпись и exp. Токен без exp считается невалидным.
func (c *Codec) Decode(raw string) (map[string]any, error) {
	return c.decode(raw,
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
}

// * DecodeIgnoringExpiry проверяет только подпись. Нужен для отзыва уже истекших токенов.
func (c *Codec) DecodeIgnoringExpiry(raw string) (map[string]any, error) {
	return c.decode(raw, jwt.WithoutClaimsValidation())
}

func (c *Codec) decode(raw string, opts ...jwt.ParserOption) (map[string]any, error) {
	const op = "jwt.Codec.Decode"

	opts = append(opts, jwt.WithValidMethods([]string{c.method.Alg()}))

	claims := jwt.MapClaims{}

	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}

	return claims, nil
}
