package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies application errors. Kinds double as wire error codes.
type Kind string

const (
	KindAuthentication       Kind = "AUTHENTICATION"
	KindAuthorization        Kind = "AUTHORIZATION"
	KindValidation           Kind = "VALIDATION"
	KindStaleState           Kind = "STALE_STATE"
	KindInvalidTransition    Kind = "INVALID_TRANSITION"
	KindInvalidOrExpiredCode Kind = "INVALID_OR_EXPIRED_CODE"
	KindTransport            Kind = "TRANSPORT"
	KindNotFound             Kind = "NOT_FOUND"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// DomainError standardizes application errors across server and client.
type DomainError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// New constructs a DomainError with an explicit kind and status.
func New(kind Kind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

// NewAuthentication flags bad or expired credentials; recoverable by re-login.
func NewAuthentication(message string) error {
	return New(KindAuthentication, message, http.StatusUnauthorized, nil)
}

// NewAuthorization flags an insufficient role; never retried.
func NewAuthorization(message string) error {
	return New(KindAuthorization, message, http.StatusForbidden, nil)
}

// NewValidation flags malformed input; surfaced inline, not retried.
func NewValidation(message string, details map[string]any) error {
	return New(KindValidation, message, http.StatusUnprocessableEntity, details)
}

// NewStaleState flags a concurrent modification; the caller must re-fetch
// before retrying.
func NewStaleState(message string) error {
	return New(KindStaleState, message, http.StatusConflict, nil)
}

// NewInvalidTransition flags a lifecycle edge outside the transition table.
func NewInvalidTransition(current, action string) error {
	return New(KindInvalidTransition,
		fmt.Sprintf("action %q not allowed from status %q", action, current),
		http.StatusConflict,
		map[string]any{"status": current, "action": action})
}

// NewInvalidOrExpiredCode flags a recovery code rejection; permanent for the
// given input.
func NewInvalidOrExpiredCode() error {
	return New(KindInvalidOrExpiredCode, "invalid or expired code", http.StatusUnprocessableEntity, nil)
}

// NewTransport flags a network or server failure.
func NewTransport(message string, err error) error {
	return &DomainError{Kind: KindTransport, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

func NewNotFound(resource string) error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewInternal(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Kind == kind
}

// ToDomainError converts generic errors to DomainError, defaulting to an
// internal error.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromWire rebuilds a DomainError from a decoded error envelope. Unknown
// codes degrade to a transport error so callers still see the status.
func FromWire(code, message string, status int) *DomainError {
	kind := Kind(code)
	switch kind {
	case KindAuthentication, KindAuthorization, KindValidation, KindStaleState,
		KindInvalidTransition, KindInvalidOrExpiredCode, KindNotFound, KindInternal:
		return &DomainError{Kind: kind, Message: message, HTTPStatus: status}
	default:
		return &DomainError{Kind: KindTransport, Message: message, HTTPStatus: status}
	}
}
