package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindUnavailable Kind = "unavailable"
	KindRateLimit   Kind = "rate_limit"
	KindOverloaded  Kind = "overloaded"
	KindTransient   Kind = "transient"
	KindAuth        Kind = "auth"
	KindValidation  Kind = "validation"
	KindBadRequest  Kind = "bad_request"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func defaultSafeMessage(kind Kind) string {
	switch kind {
	case KindUnavailable:
		return "Translation provider is not configured."
	case KindRateLimit:
		return "Rate limit exceeded. Please try again later."
	case KindOverloaded:
		return "Translation provider is over capacity. Please try again later."
	case KindTransient:
		return "Temporary upstream error. Please try again."
	case KindAuth:
		return "Authentication failed. Please verify your API key and permissions."
	case KindValidation:
		return "Response validation failed."
	case KindBadRequest:
		return "Request rejected by upstream API."
	default:
		return "Request failed."
	}
}

func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = defaultSafeMessage(kind)
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Unavailable(err error) error {
	return New(KindUnavailable, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Overloaded(err error) error {
	return New(KindOverloaded, "", err)
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// IsCapacity reports whether the provider signalled a temporary lack of
// capacity. These are the only failures eligible for retry; network errors
// and other 5xx responses stay terminal.
func IsCapacity(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindRateLimit || kind == KindOverloaded
}

func IsRateLimit(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimit
}
