package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotInLobby      = errors.New("not in a lobby")
	ErrInvalidAmount   = errors.New("transfer amount must be positive")
	ErrNotPermitted    = errors.New("you cannot transfer from this account")
	ErrUnknownTarget   = errors.New("unknown transfer target")
	ErrSessionNotFound = errors.New("session not found")
)

// CodeRequestFailed is the code carried by transport-level failures so they
// share the code path of backend error codes.
const CodeRequestFailed = "REQUEST_FAILED"

type RequestErrorKind string

const (
	RequestErrorTransport RequestErrorKind = "transport"
	RequestErrorServer    RequestErrorKind = "server"
)

// RequestError is the only error shape returned across the transport
// boundary. Server errors carry the backend's error code; transport errors
// carry CodeRequestFailed and the underlying cause.
type RequestError struct {
	Kind   RequestErrorKind
	Method string
	Path   string
	Code   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Kind == RequestErrorServer {
		return e.Code
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func NewServerError(method, path, code string) *RequestError {
	return &RequestError{Kind: RequestErrorServer, Method: method, Path: path, Code: code}
}

func NewTransportError(method, path string, err error) *RequestError {
	return &RequestError{Kind: RequestErrorTransport, Method: method, Path: path, Code: CodeRequestFailed, Err: err}
}

// ServerCode extracts the backend error code from err, if err came from the
// backend's error envelope.
func ServerCode(err error) (string, bool) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != RequestErrorServer {
		return "", false
	}
	return reqErr.Code, true
}

func IsTransportError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == RequestErrorTransport
}
