package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

const (
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeUnreadable        = "unreadable"
	CodeUnsupportedFormat = "unsupported_format"
	CodeValidation        = "validation_error"
	CodeConflict          = "conflict"
)

// Unauthorized returns a 401 error. It is used both for missing credentials
// and, for administrators, for entities outside their libraries.
func Unauthorized(msg string) error {
	return &Error{
		http.StatusUnauthorized,
		msg,
		CodeUnauthorized,
	}
}

// Forbidden returns a 403 error with a message indicating the action is
// forbidden.
func Forbidden(action string) error {
	return &Error{
		http.StatusForbidden,
		action + " is not allowed.",
		CodeForbidden,
	}
}

func Conflict(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		CodeConflict,
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		CodeNotFound,
	}
}

// Unreadable is returned when a book's backing file is missing or corrupt.
func Unreadable(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " is unreadable.",
		CodeUnreadable,
	}
}

// UnsupportedFormat is returned when a conversion target or container isn't
// supported.
func UnsupportedFormat(format string) error {
	return &Error{
		http.StatusBadRequest,
		fmt.Sprintf("Format %q is not supported.", format),
		CodeUnsupportedFormat,
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		CodeValidation,
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
