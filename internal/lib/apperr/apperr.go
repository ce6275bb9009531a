package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("forbidden")
	ErrWrongTokenType        = errors.New("wrong token type")
	ErrMissingTenantContext  = errors.New("missing company context")
	ErrRefreshReuseOrInvalid = errors.New("refresh token reused or invalid")
	ErrConflict              = errors.New("conflict")
	ErrInvalidInvite         = errors.New("invalid invite")
	ErrInviteExpired         = errors.New("invite expired")
	ErrEmailMismatch         = errors.New("email does not match invite")
	ErrInvalidExpiry         = errors.New("invalid expiry")
	ErrValidation            = errors.New("validation error")
	ErrNotFound              = errors.New("not found")
	ErrTooManyRequests       = errors.New("too many requests")
)

var statuses = []struct {
	kind   error
	status int
}{
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrWrongTokenType, http.StatusUnauthorized},
	{ErrMissingTenantContext, http.StatusUnauthorized},
	{ErrRefreshReuseOrInvalid, http.StatusUnauthorized},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInvite, http.StatusBadRequest},
	{ErrInviteExpired, http.StatusBadRequest},
	{ErrEmailMismatch, http.StatusBadRequest},
	{ErrInvalidExpiry, http.StatusBadRequest},
	{ErrValidation, http.StatusUnprocessableEntity},
	{ErrNotFound, http.StatusNotFound},
	{ErrTooManyRequests, http.StatusTooManyRequests},
}

// * Error связывает вид ошибки с сообщением, которое можно показать клиенту.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return e.kind.Error() + ": " + e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// * Kind возвращает вид ошибки из таксономии или nil, если ошибка внутренняя.
func Kind(err error) error {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.kind
		}
	}

	return nil
}

func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}

	return http.StatusInternalServerError
}

// * Message возвращает безопасный для клиента текст ошибки.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}

	if kind := Kind(err); kind != nil {
		return kind.Error()
	}

	return "internal error"
}
