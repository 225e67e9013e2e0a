// Package config provides configuration structures and loading for the
// crawl engine.
package config

import "time"

// Config represents the complete application configuration for one run.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Seeds      []string         `yaml:"seeds" mapstructure:"seeds"`
	MaxHops    int              `yaml:"max_hops" mapstructure:"max_hops"`
	Throttle   ThrottleConfig   `yaml:"throttle" mapstructure:"throttle"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Control    ControlConfig    `yaml:"control" mapstructure:"control"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// APIConfig locates the remote FamilySearch endpoints and credential used
// by the HTTP session. PersonsURLTemplate takes one %s, the comma-joined
// PID chunk; RelationshipURLTemplate takes one %s, the relationship_id.
type APIConfig struct {
	SessionToken            string `yaml:"session_token" mapstructure:"session_token"`
	PersonsURLTemplate      string `yaml:"persons_url_template" mapstructure:"persons_url_template"`
	RelationshipURLTemplate string `yaml:"relationship_url_template" mapstructure:"relationship_url_template"`
}

// StoreConfig locates the durable crawl database on disk.
type StoreConfig struct {
	OutDir   string `yaml:"out_dir" mapstructure:"out_dir"`
	Basename string `yaml:"basename" mapstructure:"basename"`
}

// Path returns the on-disk path of the database file.
func (s StoreConfig) Path() string {
	if s.OutDir == "" {
		return s.Basename + ".db"
	}
	return s.OutDir + "/" + s.Basename + ".db"
}

// ThrottleConfig configures the rate controller and HTTP retry profile.
type ThrottleConfig struct {
	RequestsPerSecond                 float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst                              int     `yaml:"burst" mapstructure:"burst"`
	MaxConcurrentPersonRequests        int     `yaml:"max_concurrent_person_requests" mapstructure:"max_concurrent_person_requests"`
	MaxConcurrentRelationshipRequests  int     `yaml:"max_concurrent_relationship_requests" mapstructure:"max_concurrent_relationship_requests"`
	MaxRetries                         int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBase                        float64 `yaml:"backoff_base_seconds" mapstructure:"backoff_base_seconds"`
	BackoffMultiplier                  float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	BackoffMaxSeconds                  float64 `yaml:"backoff_max_seconds" mapstructure:"backoff_max_seconds"`
	RequestTimeoutSeconds              float64 `yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
}

// BackoffBaseDuration returns BackoffBase as a time.Duration.
func (t ThrottleConfig) BackoffBaseDuration() time.Duration {
	return time.Duration(t.BackoffBase * float64(time.Second))
}

// BackoffMaxDuration returns BackoffMaxSeconds as a time.Duration.
func (t ThrottleConfig) BackoffMaxDuration() time.Duration {
	return time.Duration(t.BackoffMaxSeconds * float64(time.Second))
}

// RequestTimeout returns the per-request HTTP timeout as a time.Duration.
func (t ThrottleConfig) RequestTimeout() time.Duration {
	return time.Duration(t.RequestTimeoutSeconds * float64(time.Second))
}

// ProcessingConfig configures batch sizing and iteration pacing.
type ProcessingConfig struct {
	PersonsPerRequest int     `yaml:"persons_per_request" mapstructure:"persons_per_request"`
	MaxBatchDrain     int     `yaml:"max_batch_drain" mapstructure:"max_batch_drain"`
	InterBatchDelay   float64 `yaml:"inter_batch_delay_seconds" mapstructure:"inter_batch_delay_seconds"`
	CheckpointEveryN  int     `yaml:"checkpoint_every_n_payloads" mapstructure:"checkpoint_every_n_payloads"`
}

// ControlConfig configures the control plane: signal handling, the pause
// protocol, checkpoint cadence, and metrics sink.
type ControlConfig struct {
	PauseFile                string  `yaml:"pause_file" mapstructure:"pause_file"`
	MetricsFile               string  `yaml:"metrics_file" mapstructure:"metrics_file"`
	CheckpointIntervalSeconds float64 `yaml:"checkpoint_interval_seconds" mapstructure:"checkpoint_interval_seconds"`
	ShutdownGraceSeconds      float64 `yaml:"shutdown_grace_seconds" mapstructure:"shutdown_grace_seconds"`
	PauseFilePollSeconds      float64 `yaml:"pause_file_poll_seconds" mapstructure:"pause_file_poll_seconds"`
}

// CheckpointInterval returns CheckpointIntervalSeconds as a time.Duration.
func (c ControlConfig) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalSeconds * float64(time.Second))
}

// ShutdownGrace returns ShutdownGraceSeconds as a time.Duration.
func (c ControlConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds * float64(time.Second))
}

// PauseFilePollInterval returns PauseFilePollSeconds as a time.Duration.
func (c ControlConfig) PauseFilePollInterval() time.Duration {
	return time.Duration(c.PauseFilePollSeconds * float64(time.Second))
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			OutDir:   ".",
			Basename: "crawl",
		},
		API: APIConfig{
			PersonsURLTemplate:      "https://api.familysearch.org/platform/tree/persons?pids=%s",
			RelationshipURLTemplate: "https://api.familysearch.org/platform/tree/child-and-parents-relationships/%s",
		},
		MaxHops: 5,
		Throttle: ThrottleConfig{
			RequestsPerSecond:                 5,
			Burst:                              5,
			MaxConcurrentPersonRequests:       4,
			MaxConcurrentRelationshipRequests: 2,
			MaxRetries:                        5,
			BackoffBase:                       1,
			BackoffMultiplier:                 2,
			BackoffMaxSeconds:                 60,
			RequestTimeoutSeconds:             30,
		},
		Processing: ProcessingConfig{
			PersonsPerRequest: 200,
			MaxBatchDrain:     1000,
			InterBatchDelay:   0,
			CheckpointEveryN:  8,
		},
		Control: ControlConfig{
			CheckpointIntervalSeconds: 30,
			ShutdownGraceSeconds:      30,
			PauseFilePollSeconds:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration. Only
// non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, maxHops int, rps float64, pauseFile string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if maxHops > 0 {
		c.MaxHops = maxHops
	}
	if rps > 0 {
		c.Throttle.RequestsPerSecond = rps
	}
	if pauseFile != "" {
		c.Control.PauseFile = pauseFile
	}
}
