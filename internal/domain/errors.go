package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Prefer these for new code and attach detail with DomainError.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrProviderError = fmt.Errorf("provider error")
)

// Resilience errors produced by the HTTP layer.
var (
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrPayloadTooLarge = fmt.Errorf("payload too large")
	ErrServerFailure   = fmt.Errorf("server error")
	ErrUnavailable     = fmt.Errorf("service unavailable")
)

// Sentinel errors for the client domain.
var (
	ErrNotAuthenticated = fmt.Errorf("not logged in")
	ErrStreamFailed     = fmt.Errorf("chat stream failed")
	ErrTaskFailed       = fmt.Errorf("document processing failed")
	ErrNoFiles          = fmt.Errorf("no files staged")
	ErrConfigLoad       = fmt.Errorf("failed to load configuration")
	ErrDecryption       = fmt.Errorf("decryption failed")
	ErrSessionStore     = fmt.Errorf("session store failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Chat.Send")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed
// if the user tries again later. Nothing in the client retries automatically.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServerFailure) ||
		errors.Is(err, ErrUnavailable)
}

// ErrorCode is a machine-parseable error category for logs and exit codes.
type ErrorCode string

const (
	CodeUnknown          ErrorCode = "UNKNOWN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeAuthInvalid      ErrorCode = "AUTH_INVALID"
	CodeRateLimit        ErrorCode = "RATE_LIMIT"
	CodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeServerFailure    ErrorCode = "SERVER_FAILURE"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	CodeStreamFailed     ErrorCode = "STREAM_FAILED"
	CodeTaskFailed       ErrorCode = "TASK_FAILED"
	CodeNoFiles          ErrorCode = "NO_FILES"
	CodeConfigLoad       ErrorCode = "CONFIG_LOAD"
	CodeDecryption       ErrorCode = "DECRYPTION"
	CodeSessionStore     ErrorCode = "SESSION_STORE"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:         CodeNotFound,
	ErrInvalidInput:     CodeInvalidInput,
	ErrTimeout:          CodeTimeout,
	ErrProviderError:    CodeProviderError,
	ErrAuthInvalid:      CodeAuthInvalid,
	ErrRateLimit:        CodeRateLimit,
	ErrPayloadTooLarge:  CodePayloadTooLarge,
	ErrServerFailure:    CodeServerFailure,
	ErrUnavailable:      CodeUnavailable,
	ErrNotAuthenticated: CodeNotAuthenticated,
	ErrStreamFailed:     CodeStreamFailed,
	ErrTaskFailed:       CodeTaskFailed,
	ErrNoFiles:          CodeNoFiles,
	ErrConfigLoad:       CodeConfigLoad,
	ErrDecryption:       CodeDecryption,
	ErrSessionStore:     CodeSessionStore,
}

// errorCodeOrder fixes the lookup order for wrapped chains so that the most
// specific sentinel wins when an error wraps more than one.
var errorCodeOrder = []error{
	ErrTaskFailed,
	ErrStreamFailed,
	ErrNotAuthenticated,
	ErrNoFiles,
	ErrConfigLoad,
	ErrDecryption,
	ErrSessionStore,
	ErrAuthInvalid,
	ErrRateLimit,
	ErrPayloadTooLarge,
	ErrServerFailure,
	ErrUnavailable,
	ErrNotFound,
	ErrInvalidInput,
	ErrTimeout,
	ErrProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for _, sentinel := range errorCodeOrder {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
