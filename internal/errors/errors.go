package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an iapod error category.
type ErrorCode string

const (
	ErrTransport          ErrorCode = "TRANSPORT"           // 502
	ErrMalformedResponse  ErrorCode = "MALFORMED_RESPONSE"  // 502
	ErrManifestIncomplete ErrorCode = "MANIFEST_INCOMPLETE" // 422
	ErrPersistence        ErrorCode = "PERSISTENCE"         // 500
	ErrFatalIO            ErrorCode = "FATAL_IO"            // 500, aborts the process
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrParse              ErrorCode = "PARSE"               // 422
	ErrRender             ErrorCode = "RENDER"              // 500
	ErrDelivery           ErrorCode = "DELIVERY"            // 502
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// Error is a tagged error with an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// NewTransport creates an error for a failed request or connection.
func NewTransport(url string, cause error) *Error {
	return &Error{
		Code:    ErrTransport,
		Status:  502,
		Message: fmt.Sprintf("request failed: %s", url),
		Details: map[string]any{"url": url},
		Cause:   cause,
	}
}

// NewHTTPStatus creates a transport error for a non-success response.
func NewHTTPStatus(url string, status int, body string) *Error {
	msg := fmt.Sprintf("unexpected status %d from %s", status, url)
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return &Error{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url, "status": status},
	}
}

// NewMalformedResponse creates an error for a response that failed structural parsing.
func NewMalformedResponse(what string, cause error) *Error {
	return &Error{
		Code:    ErrMalformedResponse,
		Status:  502,
		Message: fmt.Sprintf("malformed %s", what),
		Cause:   cause,
	}
}

// NewManifestIncomplete creates an error for a manifest without a usable audio block.
func NewManifestIncomplete(identifier string) *Error {
	return &Error{
		Code:    ErrManifestIncomplete,
		Status:  422,
		Message: fmt.Sprintf("manifest has no original audio file: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewPersistence creates an error for a record that could not be written.
func NewPersistence(path string, cause error) *Error {
	return &Error{
		Code:    ErrPersistence,
		Status:  500,
		Message: fmt.Sprintf("cannot write %s", path),
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewFatalIO creates an error for required output that cannot be prepared.
func NewFatalIO(path string, cause error) *Error {
	return &Error{
		Code:    ErrFatalIO,
		Status:  500,
		Message: fmt.Sprintf("cannot prepare %s", path),
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewNotFound creates a 404 error for a missing episode record.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("episode not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewParse creates an error for a record file that cannot be decoded.
func NewParse(path string, cause error) *Error {
	return &Error{
		Code:    ErrParse,
		Status:  422,
		Message: fmt.Sprintf("cannot parse %s", path),
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewRender creates an error for a template that failed to render.
func NewRender(template string, cause error) *Error {
	return &Error{
		Code:    ErrRender,
		Status:  500,
		Message: fmt.Sprintf("cannot render %s", template),
		Details: map[string]any{"template": template},
		Cause:   cause,
	}
}

// NewDelivery creates an error for a publish channel that rejected a payload.
func NewDelivery(channel string, cause error) *Error {
	return &Error{
		Code:    ErrDelivery,
		Status:  502,
		Message: fmt.Sprintf("delivery via %s failed", channel),
		Details: map[string]any{"channel": channel},
		Cause:   cause,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is reports whether err, or any error it wraps, is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Code == code {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// CodeOf returns the code of the outermost *Error in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

// Chain returns the message of err followed by each wrapped cause, outermost first.
// An *Error contributes only its own code and message so that causes are not repeated.
func Chain(err error) []string {
	var out []string
	for err != nil {
		if e, ok := err.(*Error); ok {
			out = append(out, fmt.Sprintf("%s: %s", e.Code, e.Message))
		} else {
			out = append(out, err.Error())
		}
		err = stderrors.Unwrap(err)
	}
	return out
}
