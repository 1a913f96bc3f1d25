package telegram

import (
	"fmt"
	"time"
)

// ErrorKind enumerates the closed set of failure categories an RPC call can
// produce. Every failed call yields exactly one kind.
type ErrorKind string

const (
	// KindNetwork marks transport-level failures (dial, TLS, timeout).
	KindNetwork ErrorKind = "network"
	// KindInvalidResponse marks a body that did not parse as the envelope.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindRateLimit marks provider throttling (error_code 429).
	KindRateLimit ErrorKind = "rate_limit"
	// KindUnauthorized marks a rejected token (error_code 401 or 403).
	KindUnauthorized ErrorKind = "unauthorized"
	// KindMethod marks a method-specific rejection with a description.
	KindMethod ErrorKind = "method"
	// KindFile marks a local failure while preparing file content.
	KindFile ErrorKind = "file"
	// KindParse marks a result payload that did not decode into its type.
	KindParse ErrorKind = "parse"
)

// Error is the single error type surfaced by the client. Kind selects which
// of the optional fields are meaningful.
type Error struct {
	Kind        ErrorKind
	Method      string
	Description string
	Code        int
	RetryAfter  time.Duration
	Parameters  *ResponseParameters
	cause       error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Description != "":
		return fmt.Sprintf("telegram %s: %s (%s)", e.Method, e.Description, e.Kind)
	case e.cause != nil:
		return fmt.Sprintf("telegram %s: %v (%s)", e.Method, e.cause, e.Kind)
	default:
		return fmt.Sprintf("telegram %s: %s", e.Method, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether the retry loop may attempt the call again.
// Only rate limiting is retried; network failures deliberately fail fast.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindRateLimit
}

func newNetworkError(method string, cause error) *Error {
	return &Error{Kind: KindNetwork, Method: method, cause: cause}
}

func newInvalidResponseError(method string, cause error) *Error {
	return &Error{Kind: KindInvalidResponse, Method: method, cause: cause}
}

func newRateLimitError(method string, env *envelope) *Error {
	e := &Error{
		Kind:        KindRateLimit,
		Method:      method,
		Description: env.Description,
		Code:        env.ErrorCode,
		Parameters:  env.Parameters,
	}
	if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
		e.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
	}
	return e
}

func newUnauthorizedError(method string, env *envelope) *Error {
	return &Error{
		Kind:        KindUnauthorized,
		Method:      method,
		Description: env.Description,
		Code:        env.ErrorCode,
	}
}

func newMethodError(method string, env *envelope) *Error {
	return &Error{
		Kind:        KindMethod,
		Method:      method,
		Description: env.Description,
		Code:        env.ErrorCode,
		Parameters:  env.Parameters,
	}
}

func newFileError(method string, cause error) *Error {
	return &Error{Kind: KindFile, Method: method, cause: cause}
}

func newParseError(method string, cause error) *Error {
	return &Error{Kind: KindParse, Method: method, cause: cause}
}
