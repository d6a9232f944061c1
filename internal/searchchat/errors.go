package searchchat

import (
	"errors"
	"fmt"
)

// ErrCredential is returned when no usable credential has been supplied.
// The user has to enter one before any model call is attempted.
var ErrCredential = errors.New("credential is missing")

// Sentinels matched by ModelError through errors.Is.
var (
	ErrAuthentication     = errors.New("authentication failed")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrNetwork            = errors.New("network error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ErrorKind classifies upstream model failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindRateLimit
	KindNetwork
	KindServiceUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// ModelError is returned by Model implementations for upstream failures.
type ModelError struct {
	Kind       ErrorKind
	StatusCode int    // HTTP status, 0 for transport failures
	Message    string // Upstream message, never contains the credential
	Err        error
}

func (e *ModelError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAuthentication) and friends match by kind.
func (e *ModelError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	}
	return false
}

// Transient reports whether retrying later may succeed.
func (e *ModelError) Transient() bool {
	switch e.Kind {
	case KindRateLimit, KindNetwork, KindServiceUnavailable:
		return true
	}
	return false
}
