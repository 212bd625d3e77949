package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// minPollInterval keeps task polling from hammering the backend.
const minPollInterval = 100 * time.Millisecond

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAPI(cfg, ve)
	validateStream(cfg, ve)
	validateIngest(cfg, ve)
	validateSession(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAPI(cfg *Config, ve *ValidationError) {
	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case cfg.API.BaseURL == "":
		ve.Add("api.base_url is required")
	case err != nil:
		ve.Add("api.base_url: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		ve.Add("api.base_url %q must use http or https", cfg.API.BaseURL)
	case u.Host == "":
		ve.Add("api.base_url %q has no host", cfg.API.BaseURL)
	}

	durations := []struct {
		name   string
		d      time.Duration
		zeroOK bool
	}{
		{"api.conn_timeout", cfg.API.ConnTimeout, false},
		{"api.request_timeout", cfg.API.RequestTimeout, false},
		{"api.response_header_timeout", cfg.API.ResponseHeaderTimeout, true},
		{"api.pool.idle_conn_timeout", cfg.API.Pool.IdleConnTimeout, true},
		{"api.breaker.timeout", cfg.API.Breaker.Timeout, true},
		{"api.breaker.interval", cfg.API.Breaker.Interval, true},
	}
	for _, d := range durations {
		if d.d < 0 || (d.d == 0 && !d.zeroOK) {
			ve.Add("%s must be > 0, got %s", d.name, d.d)
		}
	}

	if cfg.API.Pool.MaxIdleConns < 0 || cfg.API.Pool.MaxIdleConnsPerHost < 0 || cfg.API.Pool.MaxConnsPerHost < 0 {
		ve.Add("api.pool limits must not be negative")
	}
}

func validateStream(cfg *Config, ve *ValidationError) {
	if cfg.Stream.MaxLineBytes < 0 {
		ve.Add("stream.max_line_bytes must not be negative, got %d", cfg.Stream.MaxLineBytes)
	}
}

func validateIngest(cfg *Config, ve *ValidationError) {
	if cfg.Ingest.PollInterval < minPollInterval {
		ve.Add("ingest.poll_interval must be at least %s, got %s", minPollInterval, cfg.Ingest.PollInterval)
	}
	if cfg.Ingest.PollBurst < 1 {
		ve.Add("ingest.poll_burst must be at least 1, got %d", cfg.Ingest.PollBurst)
	}
	if cfg.Ingest.MaxUploadBytes < 0 {
		ve.Add("ingest.max_upload_bytes must not be negative")
	}
}

func validateSession(cfg *Config, ve *ValidationError) {
	if strings.TrimSpace(cfg.Session.Path) == "" {
		ve.Add("session.path is required")
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	if !validLogFormats[cfg.Logger.Format] {
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
	if cfg.Logger.Output == "" {
		ve.Add("logger.output is required")
	}
}

var validExporters = map[string]bool{
	"noop": true, "stdout": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is not one of noop, stdout", cfg.Tracer.Exporter)
	}
}
