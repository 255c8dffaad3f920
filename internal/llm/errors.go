package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed model call.
type ErrorKind string

const (
	KindAuth          ErrorKind = "auth"
	KindRateLimit     ErrorKind = "rate_limit"
	KindTimeout       ErrorKind = "timeout"
	KindNetwork       ErrorKind = "network"
	KindServer        ErrorKind = "server"
	KindNotFound      ErrorKind = "not_found"
	KindEmptyResponse ErrorKind = "empty_response"
	KindUnknown       ErrorKind = "unknown"
)

// ModelCallError is returned for any failure reaching the model or reading
// its reply.
type ModelCallError struct {
	Provider   string
	Model      string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelCallError) Error() string {
	parts := []string{e.Provider, string(e.Kind)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	msg := "model call failed (" + strings.Join(parts, " ") + ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *ModelCallError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var mce *ModelCallError
	if errors.As(err, &mce) {
		return mce.Kind
	}
	return ""
}

// ClassifyError wraps err as a *ModelCallError, inferring its kind from the
// error text. SDK errors carry the HTTP status in their message, so string
// matching works across providers.
func ClassifyError(provider, model string, err error) *ModelCallError {
	if err == nil {
		return nil
	}

	var mce *ModelCallError
	if errors.As(err, &mce) {
		return mce
	}

	out := &ModelCallError{Provider: provider, Model: model, Err: err}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	for _, code := range []int{400, 401, 403, 404, 408, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			out.StatusCode = code
			break
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"):
		out.Kind = KindTimeout
		out.Message = "request timed out"
	case errors.Is(err, context.Canceled), strings.Contains(lower, "context canceled"):
		out.Kind = KindTimeout
		out.Message = "request canceled"
	case out.StatusCode == 401 || out.StatusCode == 403 ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication"):
		out.Kind = KindAuth
		out.Message = "authentication failed"
	case out.StatusCode == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		out.Kind = KindRateLimit
		out.Message = "rate limited"
	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		out.Kind = KindNotFound
		out.Message = "model not found"
	case out.StatusCode == 404:
		out.Kind = KindNotFound
		out.Message = "endpoint not found"
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "eof"):
		out.Kind = KindNetwork
		out.Message = "connection failed"
	case out.StatusCode >= 500 || strings.Contains(lower, "overloaded"):
		out.Kind = KindServer
		out.Message = "server error"
	default:
		out.Kind = KindUnknown
	}
	return out
}

func emptyResponse(provider, model string) *ModelCallError {
	return &ModelCallError{
		Provider: provider,
		Model:    model,
		Kind:     KindEmptyResponse,
		Message:  "reply contained no text",
	}
}
