package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a live backend failure.
type ErrorKind string

// Failure kinds.
const (
	KindCredentialInvalid ErrorKind = "credential_invalid"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindRateLimited       ErrorKind = "rate_limited"
	KindUnavailable       ErrorKind = "unavailable"
	KindNetwork           ErrorKind = "network"
	KindUnknown           ErrorKind = "unknown"
)

// Sentinels matched by *Error via errors.Is.
var (
	ErrCredentialInvalid = errors.New("provider credential invalid")
	ErrQuotaExceeded     = errors.New("provider quota exceeded")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrUnavailable       = errors.New("provider model unavailable")
	ErrNetwork           = errors.New("provider network error")
	ErrUnknown           = errors.New("provider error")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindCredentialInvalid:
		return ErrCredentialInvalid
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindRateLimited:
		return ErrRateLimited
	case KindUnavailable:
		return ErrUnavailable
	case KindNetwork:
		return ErrNetwork
	}
	return ErrUnknown
}

// Notice is the short user-facing description of the failure.
func (k ErrorKind) Notice() string {
	switch k {
	case KindCredentialInvalid:
		return "Invalid OpenAI API key. Please check your configuration."
	case KindQuotaExceeded:
		return "OpenAI API quota exceeded. Please check your billing."
	case KindRateLimited:
		return "Rate limit exceeded. Please try again in a moment."
	case KindUnavailable:
		return "The configured model is not available."
	case KindNetwork:
		return "Network error. Please check your internet connection."
	}
	return "The model API returned an error."
}

// Error is a classified live provider failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}
