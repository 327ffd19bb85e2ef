package matrixctl

import (
	"errors"
	"fmt"
	"strings"
)

// Application error codes.
const (
	ECONFIG    = "config"
	EAUTH      = "auth"
	ETRANSPORT = "transport"
	ESERVER    = "server"
	ENOTFOUND  = "not_found"
	EINVALID   = "invalid"
	EPARTIAL   = "partial"
	EEXIST     = "exists"
	EINTERNAL  = "internal"
)

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("matrixctl error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// A fan-out failure reports EPARTIAL even when its subrequests carry their
// own codes. Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var fe *FanoutError
	if errors.As(err, &fe) {
		return EPARTIAL
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var re *ResponseError
	if errors.As(err, &re) {
		if re.ErrCode == ErrCodeNotFound {
			return ENOTFOUND
		}
		return ESERVER
	}

	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error." with the
// underlying error text appended.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var fe *FanoutError
	if errors.As(err, &fe) {
		return fe.Error()
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	var re *ResponseError
	if errors.As(err, &re) {
		return re.Error()
	}

	return "Internal error: " + err.Error()
}

// Matrix error codes recognized by the client.
const (
	ErrCodeUnknownToken = "M_UNKNOWN_TOKEN"
	ErrCodeNotFound     = "M_NOT_FOUND"
	ErrCodeUnknown      = "M_UNKNOWN"
	ErrCodeForbidden    = "M_FORBIDDEN"
)

// ResponseError is returned when the admin API answers with a status code
// outside the request's success set.
type ResponseError struct {
	StatusCode int
	ErrCode    string
	Message    string
	Body       []byte
}

func (e *ResponseError) Error() string {
	if e.ErrCode == "" {
		return fmt.Sprintf("unexpected response (HTTP %d): %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.ErrCode, e.StatusCode, e.Message)
}

// IsMatrixError reports whether err is a *ResponseError with the given
// Matrix errcode.
func IsMatrixError(err error, code string) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.ErrCode == code
}

// IndexedError is the failure of one subrequest of a fan-out.
type IndexedError struct {
	Index int
	Err   error
}

// FanoutError reports every failed subrequest of a fan-out. Responses holds
// the full input-ordered result set; failed positions are nil.
type FanoutError struct {
	Errors    []IndexedError
	Responses []*Response
}

func (e *FanoutError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("1 of %d requests failed: request %d: %v",
			len(e.Responses), e.Errors[0].Index, e.Errors[0].Err)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, ie := range e.Errors {
		parts = append(parts, fmt.Sprintf("request %d: %v", ie.Index, ie.Err))
	}
	return fmt.Sprintf("%d of %d requests failed: %s",
		len(e.Errors), len(e.Responses), strings.Join(parts, "; "))
}

// Unwrap exposes the per-request errors to errors.Is and errors.As.
func (e *FanoutError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, ie := range e.Errors {
		errs = append(errs, ie.Err)
	}
	return errs
}
