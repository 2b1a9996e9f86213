// Package domainerrors defines the error vocabulary shared by services and
// transports. Services return *Error values carrying a Code; the HTTP layer maps
// codes to statuses in one place (ToHTTPStatus).
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, client-visible error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeRateLimited        Code = "rate_limited"

	// Admission domain codes.
	CodeConsentRequired      Code = "consent_required"
	CodeMalformedOTP         Code = "malformed_otp"
	CodeInvalidOTP           Code = "invalid_otp"
	CodeOTPExpired           Code = "otp_expired"
	CodeOversizedDocument    Code = "oversized_document"
	CodeUnsupportedDocument  Code = "unsupported_document"
	CodeRemoteValidation     Code = "remote_validation_failed"
	CodeApplicationSubmitted Code = "application_submitted"
	CodeNotVerified          Code = "candidate_not_verified"
)

// Error is a domain error with a code and a human readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message so tests can
// compare against freshly constructed values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HasCode reports whether any error in the chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first domain error in the chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the first domain error in the chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeMalformedOTP, CodeInvalidOTP,
		CodeUnsupportedDocument:
		return http.StatusBadRequest
	case CodeValidation, CodeConsentRequired, CodeRemoteValidation:
		return http.StatusUnprocessableEntity
	case CodeUnauthorized, CodeOTPExpired:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotVerified:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeApplicationSubmitted, CodeInvariantViolation:
		return http.StatusConflict
	case CodeOversizedDocument:
		return http.StatusRequestEntityTooLarge
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
