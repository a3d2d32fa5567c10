package common

import "errors"

var (
	// request specific errors
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// token specific errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// upstream providers; never leaves the resolution pipeline
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	ErrInternal = errors.New("internal error")
)

// Error pairs a sentinel kind with the message shown to API clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Validation(msg string) *Error   { return NewError(ErrValidation, msg) }
func NotFound(msg string) *Error     { return NewError(ErrNotFound, msg) }
func Unauthorized(msg string) *Error { return NewError(ErrUnauthorized, msg) }
func Forbidden(msg string) *Error    { return NewError(ErrForbidden, msg) }

// Message returns the client-facing text for err, falling back to its Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
