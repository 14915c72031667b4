package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheck_InvalidFailOnSeverity(t *testing.T) {
	original := checkFailOn
	defer func() { checkFailOn = original }()
	checkFailOn = "catastrophic"

	err := runCheck(nil, []string{"org.toml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid severity 'catastrophic'")
}

func TestRunCheck_MissingManifest(t *testing.T) {
	// The manifest is loaded before any credentials are touched, so a
	// missing file fails without network access
	err := runCheck(nil, []string{filepath.Join(t.TempDir(), "absent.toml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load manifest")
}

func TestRunCheck_MalformedManifest(t *testing.T) {
	path := writeManifest(t, `[organization]
name = "acme-co"
unknown_knob = true
`)

	err := runCheck(nil, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load manifest")
}

func TestCheckFailOnFlagDefault(t *testing.T) {
	flag := checkCmd.Flags().Lookup("fail-on")
	require.NotNil(t, flag)
	assert.Equal(t, "info", flag.DefValue)
}
