package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateStore(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateAPI(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateSeeds(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateThrottle(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateProcessing(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateControl(); err != nil {
		errors = append(errors, err...)
	}
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateStore() ValidationErrors {
	var errors ValidationErrors

	if c.Store.Basename == "" {
		errors = append(errors, ValidationError{
			Field:   "store.basename",
			Message: "basename is required",
		})
	}

	return errors
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	if c.API.PersonsURLTemplate == "" {
		errors = append(errors, ValidationError{
			Field:   "api.persons_url_template",
			Message: "persons_url_template is required",
		})
	}
	if c.API.RelationshipURLTemplate == "" {
		errors = append(errors, ValidationError{
			Field:   "api.relationship_url_template",
			Message: "relationship_url_template is required",
		})
	}

	return errors
}

func (c *Config) validateSeeds() ValidationErrors {
	var errors ValidationErrors

	if c.MaxHops < 0 {
		errors = append(errors, ValidationError{
			Field:   "max_hops",
			Message: "max_hops cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateThrottle() ValidationErrors {
	var errors ValidationErrors

	if c.Throttle.RequestsPerSecond <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.requests_per_second",
			Message: "requests_per_second must be positive",
		})
	}

	if c.Throttle.Burst <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.burst",
			Message: "burst must be positive",
		})
	}

	if c.Throttle.MaxConcurrentPersonRequests <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.max_concurrent_person_requests",
			Message: "max_concurrent_person_requests must be positive",
		})
	}

	if c.Throttle.MaxConcurrentRelationshipRequests <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.max_concurrent_relationship_requests",
			Message: "max_concurrent_relationship_requests must be positive",
		})
	}

	if c.Throttle.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	if c.Throttle.BackoffBase <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.backoff_base_seconds",
			Message: "backoff_base_seconds must be positive",
		})
	}

	if c.Throttle.BackoffMultiplier <= 1 {
		errors = append(errors, ValidationError{
			Field:   "throttle.backoff_multiplier",
			Message: "backoff_multiplier must be greater than 1",
		})
	}

	if c.Throttle.BackoffMaxSeconds < c.Throttle.BackoffBase {
		errors = append(errors, ValidationError{
			Field:   "throttle.backoff_max_seconds",
			Message: "backoff_max_seconds cannot be less than backoff_base_seconds",
		})
	}

	if c.Throttle.RequestTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "throttle.request_timeout_seconds",
			Message: "request_timeout_seconds must be positive",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.PersonsPerRequest <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.persons_per_request",
			Message: "persons_per_request must be positive",
		})
	}

	if c.Processing.MaxBatchDrain <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.max_batch_drain",
			Message: "max_batch_drain must be positive",
		})
	}

	if c.Processing.InterBatchDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.inter_batch_delay_seconds",
			Message: "inter_batch_delay_seconds cannot be negative",
		})
	}

	if c.Processing.CheckpointEveryN <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.checkpoint_every_n_payloads",
			Message: "checkpoint_every_n_payloads must be positive",
		})
	}

	return errors
}

func (c *Config) validateControl() ValidationErrors {
	var errors ValidationErrors

	if c.Control.CheckpointIntervalSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "control.checkpoint_interval_seconds",
			Message: "checkpoint_interval_seconds cannot be negative",
		})
	}

	if c.Control.ShutdownGraceSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "control.shutdown_grace_seconds",
			Message: "shutdown_grace_seconds cannot be negative",
		})
	}

	if c.Control.PauseFilePollSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "control.pause_file_poll_seconds",
			Message: "pause_file_poll_seconds must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
