package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgdrift/pkg/config"
)

func TestResolveOrganization_FlagWins(t *testing.T) {
	original := exportOrg
	defer func() { exportOrg = original }()
	exportOrg = "acme-co"

	cfg := &config.Config{}
	cfg.GitHub.Organization = "other-org"

	org, err := resolveOrganization(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "acme-co", org)
}

func TestResolveOrganization_ConfigDefault(t *testing.T) {
	original := exportOrg
	defer func() { exportOrg = original }()
	exportOrg = ""

	cfg := &config.Config{}
	cfg.GitHub.Organization = "initech"

	org, err := resolveOrganization(context.Background(), nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "initech", org)
}

func TestResolveOrganization_NonInteractiveRequiresFlag(t *testing.T) {
	original := exportOrg
	defer func() { exportOrg = original }()
	exportOrg = ""

	// Tests run without a terminal on stdin, so interactive selection
	// is unavailable and the flag becomes mandatory
	_, err := resolveOrganization(context.Background(), nil, &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization not specified")
}

func TestExportOrgFlag(t *testing.T) {
	flag := exportCmd.Flags().Lookup("org")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}
