package validate

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	passwordSpecials = "#?!@$%^_&*-"
	// bcrypt хеширует не больше 72 байт
	passwordMaxBytes = 72
)

// * New возвращает валидатор с зарегистрированным правилом strongpassword.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})

	return v
}

// * StrongPassword проверяет наличие заглавной и строчной буквы, цифры и спецсимвола
// * и длину не больше 72 байт.
func StrongPassword(p string) bool {
	if len(p) > passwordMaxBytes {
		return false
	}

	var upper, lower, digit, special bool

	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	return upper && lower && digit && special
}
