package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"

	"docnexus/internal/domain"
)

// mapHTTPError maps a non-2xx response to a domain error. The server's
// "detail" field, when present, becomes the error detail; otherwise the
// trimmed body is used.
func mapHTTPError(op string, statusCode int, body []byte) error {
	var sentinel error
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		sentinel = domain.ErrAuthInvalid
	case statusCode == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case statusCode == http.StatusRequestEntityTooLarge:
		sentinel = domain.ErrPayloadTooLarge
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		sentinel = domain.ErrInvalidInput
	case statusCode == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimit
	case statusCode >= 500:
		sentinel = domain.ErrServerFailure
	default:
		sentinel = domain.ErrProviderError
	}

	detail := parseDetail(body)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", statusCode)
	}
	return domain.NewDomainError(op, sentinel, detail)
}

const maxDetailLen = 300

// parseDetail extracts a readable message from an error body. FastAPI emits
// {"detail": "text"} or, for validation errors, {"detail": [{"msg": ...}]}.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if json.Unmarshal(env.Detail, &s) == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(env.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(env.Detail)
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxDetailLen {
		text = text[:maxDetailLen] + "..."
	}
	return text
}

// breakerSuccess decides which errors count against the circuit breaker.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return !domain.IsRetryableError(err)
}

// mapBreakerError turns gobreaker's fast-fail errors into ErrUnavailable.
func mapBreakerError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewDomainError(op, domain.ErrUnavailable, "circuit open, try again shortly")
	}
	return err
}
