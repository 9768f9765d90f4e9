package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// AppError implements the error interface and provides structured error handling
type AppError struct {
	Code       Code      `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode"`
	Context    string    `json:"context,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	RetryAfter int       `json:"retryAfter,omitempty"` // seconds, rate limits only
	Timestamp  time.Time `json:"timestamp"`
	cause      error     // unexported to maintain encapsulation
	stack      []uintptr // stack trace
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (context: %s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is interface for error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithTraceID sets the trace ID for distributed tracing
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// Retryable reports whether the caller may retry the same request later.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodeAllProvidersUnavailable, CodeRateLimitExceeded, CodeServiceUnavailable, CodeServiceTimeout:
		return true
	}
	return false
}

// ToResponse serializes the error for HTTP response
func (e *AppError) ToResponse() map[string]interface{} {
	body := map[string]interface{}{
		"code":      e.Code,
		"message":   e.Message,
		"retryable": e.Retryable(),
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}

	if e.Context != "" {
		body["context"] = e.Context
	}

	if e.TraceID != "" {
		body["traceId"] = e.TraceID
	}

	if e.RetryAfter > 0 {
		body["retryAfter"] = e.RetryAfter
	}

	return map[string]interface{}{"error": body}
}

// ToLog serializes the error for logging with stack trace
func (e *AppError) ToLog() map[string]interface{} {
	log := map[string]interface{}{
		"code":       e.Code,
		"message":    e.Message,
		"statusCode": e.StatusCode,
		"timestamp":  e.Timestamp.Format(time.RFC3339),
	}

	if e.Context != "" {
		log["context"] = e.Context
	}

	if e.TraceID != "" {
		log["traceId"] = e.TraceID
	}

	if e.cause != nil {
		log["cause"] = e.cause.Error()
	}

	if len(e.stack) > 0 {
		log["stack"] = e.formatStack()
	}

	return log
}

// formatStack formats the stack trace
func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: getDefaultStatusCode(code),
		Timestamp:  time.Now(),
		stack:      captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithMessage sets a custom message
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithStatusCode sets a custom HTTP status code
func WithStatusCode(statusCode int) Option {
	return func(e *AppError) {
		e.StatusCode = statusCode
	}
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// WithRetryAfter attaches a retry hint, rounded up to whole seconds.
func WithRetryAfter(d time.Duration) Option {
	return func(e *AppError) {
		secs := int((d + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		e.RetryAfter = secs
	}
}

// Factory methods for common error types

// InvalidRequest creates a client error for a malformed route request.
func InvalidRequest(context string) *AppError {
	return New(CodeInvalidRequest, WithContext(context))
}

// RateLimited creates a quota error carrying a retry hint.
func RateLimited(clientContext string, retryAfter time.Duration) *AppError {
	return New(CodeRateLimitExceeded, WithContext(clientContext), WithRetryAfter(retryAfter))
}

// Provider creates a provider-scoped error. Provider errors never reach API callers.
func Provider(code Code, provider string, cause error) *AppError {
	return New(code, WithContext(provider), WithCause(cause))
}

// NotFound creates a not found error
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusNotFound))
}

// Validation creates a validation error
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// Internal creates an internal server error
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusInternalServerError))
}

// External creates an external service error
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusServiceUnavailable))
}

// Wrap wraps a standard error into AppError
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return Internal(code, context, err)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsProviderError reports whether err belongs to the provider error family.
func IsProviderError(err error) bool {
	switch GetCode(err) {
	case CodeProviderError, CodeProviderUnavailable, CodeProviderAuthFailed,
		CodeProviderRateLimited, CodeProviderUnsupported, CodeMalformedRoute, CodeCircuitOpen:
		return true
	}
	return false
}

// getDefaultStatusCode determines the HTTP status code based on the error code
func getDefaultStatusCode(code Code) int {
	switch code {
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeAllProvidersUnavailable, CodeServiceUnavailable, CodeGasOracleUnavailable, CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case CodeProviderError, CodeProviderUnavailable, CodeProviderAuthFailed,
		CodeProviderRateLimited, CodeProviderUnsupported, CodeMalformedRoute:
		return http.StatusBadGateway
	}

	switch {
	case strings.Contains(string(code), "UNAUTHORIZED"):
		return http.StatusUnauthorized

	case strings.Contains(string(code), "NOT_FOUND"):
		return http.StatusNotFound

	case strings.Contains(string(code), "INVALID"),
		strings.Contains(string(code), "REQUIRED"),
		strings.Contains(string(code), "VALIDATION"):
		return http.StatusBadRequest

	case strings.Contains(string(code), "CONNECTION"),
		strings.Contains(string(code), "TIMEOUT"):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
