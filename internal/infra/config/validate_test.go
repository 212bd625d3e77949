package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultsPass(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"", "api.base_url is required"},
		{"ftp://example.com", "must use http or https"},
		{"https://", "has no host"},
		{"/relative/path", "must use http or https"},
	}
	for _, tt := range tests {
		cfg := Defaults()
		cfg.API.BaseURL = tt.url
		err := Validate(cfg)
		if err == nil {
			t.Errorf("base_url %q: expected validation error", tt.url)
			continue
		}
		assertContains(t, err.Error(), tt.want)
	}
}

func TestValidateTimeouts(t *testing.T) {
	cfg := Defaults()
	cfg.API.ConnTimeout = 0
	cfg.API.RequestTimeout = -time.Second
	cfg.API.ResponseHeaderTimeout = 0 // allowed
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "api.conn_timeout must be > 0")
	assertContains(t, err.Error(), "api.request_timeout must be > 0")
	if strings.Contains(err.Error(), "response_header_timeout") {
		t.Errorf("zero response_header_timeout should be allowed: %v", err)
	}
}

func TestValidatePollInterval(t *testing.T) {
	cfg := Defaults()
	cfg.Ingest.PollInterval = 50 * time.Millisecond
	cfg.Ingest.PollBurst = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "ingest.poll_interval must be at least 100ms")
	assertContains(t, err.Error(), "ingest.poll_burst must be at least 1")
}

func TestValidateLoggerEnums(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "verbose"
	cfg.Logger.Format = "xml"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `logger.level "verbose"`)
	assertContains(t, err.Error(), `logger.format "xml"`)
}

func TestValidateLoggerLevelCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "DEBUG"
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateTracerExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Exporter = "jaeger"
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled tracer should not be checked: %v", err)
	}

	cfg.Tracer.Enabled = true
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `tracer.exporter "jaeger"`)
}

func TestValidateSessionPath(t *testing.T) {
	cfg := Defaults()
	cfg.Session.Path = "  "
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "session.path is required")
}

func TestValidationErrorAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.API.BaseURL = ""
	cfg.Logger.Output = ""
	cfg.Stream.MaxLineBytes = -1

	err := Validate(cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
