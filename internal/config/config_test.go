package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.OutDir != "." {
		t.Errorf("expected store out_dir '.', got %s", cfg.Store.OutDir)
	}
	if cfg.Store.Basename != "crawl" {
		t.Errorf("expected store basename 'crawl', got %s", cfg.Store.Basename)
	}

	if cfg.MaxHops != 5 {
		t.Errorf("expected max_hops 5, got %d", cfg.MaxHops)
	}

	if cfg.Throttle.RequestsPerSecond != 5 {
		t.Errorf("expected requests_per_second 5, got %v", cfg.Throttle.RequestsPerSecond)
	}
	if cfg.Throttle.MaxConcurrentPersonRequests != 4 {
		t.Errorf("expected max_concurrent_person_requests 4, got %d", cfg.Throttle.MaxConcurrentPersonRequests)
	}
	if cfg.Throttle.MaxConcurrentRelationshipRequests != 2 {
		t.Errorf("expected max_concurrent_relationship_requests 2, got %d", cfg.Throttle.MaxConcurrentRelationshipRequests)
	}

	if cfg.Processing.PersonsPerRequest != 200 {
		t.Errorf("expected persons_per_request 200, got %d", cfg.Processing.PersonsPerRequest)
	}
	if cfg.Processing.CheckpointEveryN != 8 {
		t.Errorf("expected checkpoint_every_n_payloads 8, got %d", cfg.Processing.CheckpointEveryN)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format 'text', got %s", cfg.Logging.Format)
	}
}

func TestStoreConfigPath(t *testing.T) {
	s := StoreConfig{OutDir: "/var/crawl", Basename: "fs"}
	if got, want := s.Path(), "/var/crawl/fs.db"; got != want {
		t.Errorf("expected path %q, got %q", want, got)
	}

	s2 := StoreConfig{Basename: "fs"}
	if got, want := s2.Path(), "fs.db"; got != want {
		t.Errorf("expected path %q with empty out_dir, got %q", want, got)
	}
}

func TestThrottleConfigDurations(t *testing.T) {
	th := ThrottleConfig{BackoffBase: 2, BackoffMaxSeconds: 30, RequestTimeoutSeconds: 10}

	if got, want := th.BackoffBaseDuration().Seconds(), 2.0; got != want {
		t.Errorf("expected backoff base %v seconds, got %v", want, got)
	}
	if got, want := th.BackoffMaxDuration().Seconds(), 30.0; got != want {
		t.Errorf("expected backoff max %v seconds, got %v", want, got)
	}
	if got, want := th.RequestTimeout().Seconds(), 10.0; got != want {
		t.Errorf("expected request timeout %v seconds, got %v", want, got)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides("debug", "json", 10, 8.5, "/tmp/pause")

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected overridden level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected overridden format 'json', got %s", cfg.Logging.Format)
	}
	if cfg.MaxHops != 10 {
		t.Errorf("expected overridden max_hops 10, got %d", cfg.MaxHops)
	}
	if cfg.Throttle.RequestsPerSecond != 8.5 {
		t.Errorf("expected overridden requests_per_second 8.5, got %v", cfg.Throttle.RequestsPerSecond)
	}
	if cfg.Control.PauseFile != "/tmp/pause" {
		t.Errorf("expected overridden pause_file, got %s", cfg.Control.PauseFile)
	}
}

func TestApplyOverridesIgnoresZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	original := *cfg
	cfg.ApplyOverrides("", "", 0, 0, "")

	if cfg.Logging.Level != original.Logging.Level {
		t.Errorf("expected level unchanged, got %s", cfg.Logging.Level)
	}
	if cfg.MaxHops != original.MaxHops {
		t.Errorf("expected max_hops unchanged, got %d", cfg.MaxHops)
	}
}
