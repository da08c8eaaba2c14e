package services

import "errors"

// Sentinel kinds. Every *Error wraps exactly one of them, so callers can use errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
)

// Error carries a kind, a numeric business code and a human readable message.
type Error struct {
	Kind    error
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(code int, msg string) error     { return &Error{Kind: ErrNotFound, Code: code, Message: msg} }
func forbidden(code int, msg string) error    { return &Error{Kind: ErrForbidden, Code: code, Message: msg} }
func unauthorized(code int, msg string) error { return &Error{Kind: ErrUnauthorized, Code: code, Message: msg} }
func conflict(code int, msg string) error     { return &Error{Kind: ErrConflict, Code: code, Message: msg} }
func badRequest(code int, msg string) error   { return &Error{Kind: ErrBadRequest, Code: code, Message: msg} }
