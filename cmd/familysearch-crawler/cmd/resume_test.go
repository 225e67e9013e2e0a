package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeCommandStructure(t *testing.T) {
	assert.NotNil(t, resumeCmd)
	assert.Equal(t, "resume", resumeCmd.Use)
	assert.NotNil(t, resumeCmd.RunE)
}

func TestResumeDryRunSkipsCrawl(t *testing.T) {
	original := dryRun
	defer func() { dryRun = original }()
	dryRun = true

	var buf bytes.Buffer
	resumeCmd.SetOut(&buf)

	err := resumeCmd.RunE(resumeCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "dry run")
}
