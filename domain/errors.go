package domain

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"
)

// ErrorKind categorizes API errors. The kind name is part of the external
// contract: responses carry its snake_case form in the error body.
type ErrorKind string

const (
	KindBadRequest       ErrorKind = "BadRequest"
	KindInvalidMethod    ErrorKind = "InvalidMethod"
	KindInvalidParam     ErrorKind = "InvalidParam"
	KindMissingParam     ErrorKind = "MissingParam"
	KindInvalidSignature ErrorKind = "InvalidSignature"
	KindInvalidProxyUrl  ErrorKind = "InvalidProxyUrl"
	KindInvalidImage     ErrorKind = "InvalidImage"
	KindFileMissing      ErrorKind = "FileMissing"
	KindLengthRequired   ErrorKind = "LengthRequired"
	KindPayloadTooLarge  ErrorKind = "PayloadTooLarge"
	KindNoSuchAccount    ErrorKind = "NoSuchAccount"
	KindNotFound         ErrorKind = "NotFound"
	KindDeplorable       ErrorKind = "Deplorable"
	// KindQoutaExceeded keeps the historical spelling; it is part of the
	// external contract and must not be corrected.
	KindQoutaExceeded ErrorKind = "QoutaExceeded"
	KindBlacklisted   ErrorKind = "Blacklisted"
	KindUpstreamError ErrorKind = "UpstreamError"
	KindInternalError ErrorKind = "InternalError"
)

// APIError is a structured application error carrying a taxonomy kind, an
// optional info payload surfaced to the client, and an optional cause.
// It implements the error interface and supports error unwrapping.
type APIError struct {
	Kind  ErrorKind
	Info  map[string]any
	Cause error
}

// Error returns a string representation of the APIError.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause for use with errors.Is and errors.As.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidMethod:
		return http.StatusMethodNotAllowed
	case KindLengthRequired:
		return http.StatusLengthRequired
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNoSuchAccount, KindNotFound:
		return http.StatusNotFound
	case KindDeplorable:
		return http.StatusForbidden
	case KindQoutaExceeded:
		return http.StatusTooManyRequests
	case KindBlacklisted:
		return http.StatusUnavailableForLegalReasons
	case KindInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ErrorBody is the wire shape of error responses.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the snake_cased kind name and optional info.
type ErrorDetail struct {
	Name string         `json:"name"`
	Info map[string]any `json:"info,omitempty"`
}

// ToResponse converts the error to its wire representation.
func (e *APIError) ToResponse() ErrorBody {
	return ErrorBody{Error: ErrorDetail{
		Name: CamelToSnake(string(e.Kind)),
		Info: e.Info,
	}}
}

// NewError creates an APIError of the given kind.
func NewError(kind ErrorKind) *APIError {
	return &APIError{Kind: kind}
}

// WrapError creates an APIError of the given kind wrapping a cause.
func WrapError(kind ErrorKind, cause error) *APIError {
	return &APIError{Kind: kind, Cause: cause}
}

// ErrorWithInfo creates an APIError with a client-visible info payload.
func ErrorWithInfo(kind ErrorKind, info map[string]any) *APIError {
	return &APIError{Kind: kind, Info: info}
}

// AsAPIError extracts an APIError from err, or wraps err as an internal
// error when it is not one.
func AsAPIError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return WrapError(KindInternalError, err)
}

// CamelToSnake converts a CamelCase kind name to its snake_case wire form,
// e.g. "NoSuchAccount" -> "no_such_account".
func CamelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
