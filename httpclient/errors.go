package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/captionkit/errors"
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindConnection
	KindAuth
	KindNotFound
	KindRateLimit
	KindClient
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is a classified request failure.
type Error struct {
	// StatusCode is 0 for transport-level failures.
	StatusCode int
	Kind       ErrorKind
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AppError converts e into the service error type, attributing it to service.
func (e *Error) AppError(service string) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch e.Kind {
	case KindRateLimit:
		appErr = apperrors.RateLimited()
	case KindTimeout:
		appErr = apperrors.Timeout(service)
	default:
		appErr = apperrors.ExternalServiceError(service, e)
		appErr.Retryable = e.Retryable
	}
	appErr.Cause = e
	if e.StatusCode > 0 {
		appErr.WithDetail("upstream_status", e.StatusCode)
	}
	return appErr
}

func transportError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Retryable: true, Err: err}
}

// classifyStatus returns nil for 2xx.
func classifyStatus(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Message: messageFrom(status, body), Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind, e.Retryable = KindRateLimit, true
	case status >= 500:
		e.Kind, e.Retryable = KindServer, true
	default:
		e.Kind = KindClient
	}
	return e
}

func messageFrom(status int, body []byte) string {
	const max = 512
	if len(body) == 0 {
		return http.StatusText(status)
	}
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

// IsRetryable reports whether err is a classified, retryable failure.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// IsKind reports whether err is a classified failure of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
