package errors

import "fmt"

// ErrorType identifies the category of a Media Source error.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeBadRequest  ErrorType = "bad_request"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a Media Source error carrying a type and the HTTP status code it
// was derived from (0 for transport-level failures).
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New constructs an Error of the given type.
func New(t ErrorType, code int, message string) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// FromStatusCode maps an HTTP status code to an Error.
func FromStatusCode(code int, message string) *Error {
	var t ErrorType
	switch code {
	case 400:
		t = ErrorTypeBadRequest
	case 401:
		t = ErrorTypeAuth
	case 403:
		t = ErrorTypeForbidden
	case 404:
		t = ErrorTypeNotFound
	case 429:
		t = ErrorTypeRateLimit
	case 500, 502, 503, 504:
		t = ErrorTypeServerError
	default:
		if code >= 500 {
			t = ErrorTypeServerError
		} else {
			t = ErrorTypeUnknown
		}
	}
	return &Error{Type: t, Message: message, Code: code}
}
