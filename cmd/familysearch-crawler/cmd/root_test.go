package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

func TestGetConfigFile(t *testing.T) {
	original := cfgFile
	defer func() { cfgFile = original }()

	cfgFile = "/path/to/custom.yaml"
	assert.Equal(t, "/path/to/custom.yaml", GetConfigFile())
}

func TestGetCLIOverrides(t *testing.T) {
	originalLogLevel := logLevel
	originalLogFormat := logFormat
	originalMaxHops := maxHops
	originalRPS := rps
	originalPauseFile := pauseFile
	originalMetricsFile := metricsFile
	defer func() {
		logLevel = originalLogLevel
		logFormat = originalLogFormat
		maxHops = originalMaxHops
		rps = originalRPS
		pauseFile = originalPauseFile
		metricsFile = originalMetricsFile
	}()

	logLevel = "debug"
	logFormat = "json"
	maxHops = 10
	rps = 3.5
	pauseFile = "/tmp/pause"
	metricsFile = "/tmp/metrics.jsonl"

	got := GetCLIOverrides()
	assert.Equal(t, CLIOverrides{
		LogLevel:    "debug",
		LogFormat:   "json",
		MaxHops:     10,
		RPS:         3.5,
		PauseFile:   "/tmp/pause",
		MetricsFile: "/tmp/metrics.jsonl",
	}, got)
}

func TestRootCommandStructure(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "familysearch-crawler", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Equal(t, Version, rootCmd.Version)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	configFlag, err := flags.GetString("config")
	assert.NoError(t, err)
	assert.Equal(t, "crawl.yaml", configFlag)

	_, err = flags.GetString("log-level")
	assert.NoError(t, err)
	_, err = flags.GetString("log-format")
	assert.NoError(t, err)
	_, err = flags.GetInt("max-hops")
	assert.NoError(t, err)
	_, err = flags.GetFloat64("rps")
	assert.NoError(t, err)
	_, err = flags.GetString("pause-file")
	assert.NoError(t, err)
	_, err = flags.GetString("metrics-file")
	assert.NoError(t, err)
}

func TestRootCommandSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name()
	}

	for _, expected := range []string{"run", "resume", "checkpoint", "version"} {
		assert.Contains(t, names, expected, "expected command %s not found", expected)
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, 0},
		{"unclassified error", errors.New("boom"), 1},
		{"auth expired is fatal with code 2", crawlerr.New(crawlerr.KindAuthExpired, "auth", nil), 2},
		{"store integrity is fatal with code 3", crawlerr.New(crawlerr.KindStoreIntegrity, "corrupt", nil), 3},
		{"cancelled is a clean stop", crawlerr.New(crawlerr.KindCancelled, "stopped", nil), 0},
		{"permanent failure falls back to 1", crawlerr.New(crawlerr.KindPermanentFailure, "nope", nil), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}
