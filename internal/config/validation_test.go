package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Seeds = []string{"KJ1Z-ABC"}
	return cfg
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestMissingBasename(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Basename = ""

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for missing basename")
	}
	if !strings.Contains(err.Error(), "store.basename") {
		t.Errorf("expected error to mention 'store.basename', got: %v", err)
	}
}

func TestNegativeMaxHops(t *testing.T) {
	cfg := validConfig()
	cfg.MaxHops = -1

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for negative max_hops")
	}
	if !strings.Contains(err.Error(), "max_hops") {
		t.Errorf("expected error to mention 'max_hops', got: %v", err)
	}
}

func TestInvalidRequestsPerSecond(t *testing.T) {
	cfg := validConfig()
	cfg.Throttle.RequestsPerSecond = 0

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for non-positive requests_per_second")
	}
	if !strings.Contains(err.Error(), "throttle.requests_per_second") {
		t.Errorf("expected error about requests_per_second, got: %v", err)
	}
}

func TestInvalidBackoffMultiplier(t *testing.T) {
	cfg := validConfig()
	cfg.Throttle.BackoffMultiplier = 1

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for backoff_multiplier <= 1")
	}
	if !strings.Contains(err.Error(), "backoff_multiplier") {
		t.Errorf("expected error about backoff_multiplier, got: %v", err)
	}
}

func TestBackoffMaxLessThanBase(t *testing.T) {
	cfg := validConfig()
	cfg.Throttle.BackoffBase = 10
	cfg.Throttle.BackoffMaxSeconds = 5

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for backoff_max_seconds below backoff_base_seconds")
	}
	if !strings.Contains(err.Error(), "backoff_max_seconds") {
		t.Errorf("expected error about backoff_max_seconds, got: %v", err)
	}
}

func TestInvalidPersonsPerRequest(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.PersonsPerRequest = 0

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for non-positive persons_per_request")
	}
	if !strings.Contains(err.Error(), "persons_per_request") {
		t.Errorf("expected error about persons_per_request, got: %v", err)
	}
}

func TestInvalidLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for invalid logging level")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("expected error about logging.level, got: %v", err)
	}
}

func TestInvalidLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for invalid logging format")
	}
	if !strings.Contains(err.Error(), "logging.format") {
		t.Errorf("expected error about logging.format, got: %v", err)
	}
}

func TestMultipleErrors(t *testing.T) {
	cfg := &Config{
		Store:      StoreConfig{},
		Throttle:   ThrottleConfig{},
		Processing: ProcessingConfig{},
		Control:    ControlConfig{},
		Logging:    LoggingConfig{Level: "loud", Format: "xml"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Error("expected multiple validation errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "store.basename") {
		t.Error("expected error about store.basename")
	}
	if !strings.Contains(errStr, "throttle.requests_per_second") {
		t.Error("expected error about throttle.requests_per_second")
	}
	if !strings.Contains(errStr, "logging.level") {
		t.Error("expected error about logging.level")
	}
}
