// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI and the CLI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"docnexus/internal/adapter/tui/theme"
	"docnexus/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Detail  string   // server-provided detail, if any
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display in the TUI message list.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if fe.Detail != "" {
		sb.WriteString("\n  Server said: ")
		sb.WriteString(fe.Detail)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

// Short is the single-line form used in status bars and CLI output.
func (fe FriendlyError) Short() string {
	switch {
	case fe.Detail != "":
		return fe.Title + ": " + fe.Detail
	case fe.Message != "":
		return fe.Title + ": " + fe.Message
	}
	return fe.Title
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinel errors (checked first so errors.Is works through wrapping).
	{
		match: is(domain.ErrNotAuthenticated),
		produce: constantError("Not Logged In", "This action needs an account.",
			[]string{"Run 'docnexus login'", "Or set DOCNEXUS_AUTH_TOKEN"}),
	},
	{
		match: is(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed", "The server rejected your credentials or session.",
			[]string{"Run 'docnexus login' again", "Check the username and password"}),
	},
	{
		match: is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests were sent to the server.",
			[]string{"Wait a moment before retrying"}),
	},
	{
		match: is(domain.ErrPayloadTooLarge),
		produce: constantError("Upload Too Large", "The files exceed the size the server accepts.",
			[]string{"Upload fewer files at once", "Split large documents"}),
	},
	{
		match: func(err error) bool { return strings.Contains(err.Error(), "circuit open") },
		produce: constantError("Server Unreachable", "Recent requests kept failing, so new ones are paused.",
			[]string{"Wait about 30 seconds and try again"}),
	},
	{
		match: is(domain.ErrServerFailure),
		produce: constantError("Server Error", "The DocNexus server failed to handle the request.",
			[]string{"Try again in a moment"}),
	},
	{
		match: is(domain.ErrTimeout),
		produce: constantError("Request Timed Out", "The request took too long to complete.",
			[]string{"Check your network connection", "Increase api.request_timeout in config"}),
	},
	{
		match: is(domain.ErrTaskFailed),
		produce: constantError("Processing Failed", "The server could not process the document.",
			[]string{"Check that the file is a readable PDF", "Upload it again"}),
	},
	{
		match: is(domain.ErrStreamFailed),
		produce: constantError("Answer Interrupted", "The answer stream ended unexpectedly.",
			[]string{"Ask the question again"}),
	},
	{
		match:   is(domain.ErrNoFiles),
		produce: constantError("No Files Staged", "Add at least one file before uploading.", []string{"Use /upload <path>"}),
	},
	{
		match:   is(domain.ErrNotFound),
		produce: constantError("Not Found", "The requested item does not exist.", []string{"Refresh the list and try again"}),
	},
	{
		match:   is(domain.ErrInvalidInput),
		produce: constantError("Invalid Input", "", nil),
	},
	{
		match: is(domain.ErrDecryption),
		produce: constantError("Cannot Decrypt Config", "An encrypted config value could not be decrypted.",
			[]string{"Set DOCNEXUS_CONFIG_KEY to the passphrase used with 'docnexus config encrypt'"}),
	},
	{
		match: is(domain.ErrConfigLoad),
		produce: constantError("Configuration Error", "The configuration file could not be loaded.",
			[]string{"Check ~/.docnexus/config.yaml"}),
	},
	{
		match: is(domain.ErrSessionStore),
		produce: constantError("Session Storage Error", "Local session data could not be read or written.",
			[]string{"Check permissions of ~/.docnexus"}),
	},

	// Network / connectivity patterns (string matching for transport errors).
	{
		match: containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the DocNexus server.",
			[]string{"Check your internet connection", "Verify api.base_url in config"}),
	},
	{
		match: is(domain.ErrUnavailable),
		produce: constantError("Service Unavailable", "The server is not accepting requests right now.",
			[]string{"Try again in a moment"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			fe := p.produce(err)
			fe.Detail = detailOf(err)
			if fe.Message == "" && fe.Detail == "" {
				fe.Message = err.Error()
			}
			return fe
		}
	}

	// Fallback for unrecognized errors.
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug for more details"},
		Raw:     err.Error(),
	}
}

// detailOf returns the innermost DomainError detail, which carries the
// server's own message for HTTP failures.
func detailOf(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Detail
	}
	return ""
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
