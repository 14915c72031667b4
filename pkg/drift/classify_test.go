package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Severities(t *testing.T) {
	discrepancies := []Discrepancy{
		{Kind: KindMissing, Entity: EntityTeam, ID: "infra"},
		{Kind: KindUnexpected, Entity: EntityRepository, ID: "legacy"},
		{Kind: KindDrifted, Entity: EntityRepository, ID: "svc", Field: "visibility"},
		{Kind: KindUnderPrivileged, Entity: EntityRepository, ID: "svc", Principal: "infra", PrincipalKind: EntityTeam, Expected: "write", Actual: "none"},
		{Kind: KindOverPrivileged, Entity: EntityRepository, ID: "svc", Principal: "bob", PrincipalKind: EntityMember, Expected: "read", Actual: "write"},
		{Kind: KindOverPrivileged, Entity: EntityRepository, ID: "svc", Principal: "eve", PrincipalKind: EntityMember, Expected: "read", Actual: "admin"},
		{Kind: KindHierarchyDrift, Entity: EntityTeam, ID: "developers", Field: "parent", Expected: "platform", Actual: "none"},
	}

	report := Classify(discrepancies)

	severities := make([]Severity, len(report.Discrepancies))
	for i, d := range report.Discrepancies {
		severities[i] = d.Severity
	}
	assert.Equal(t, []Severity{
		SeverityWarning,  // missing team
		SeverityInfo,     // unexpected repo
		SeverityWarning,  // drifted setting
		SeverityWarning,  // under privileged
		SeverityWarning,  // over privileged below admin
		SeverityCritical, // over privileged at admin
		SeverityWarning,  // hierarchy drift
	}, severities)

	assert.Equal(t, 1, report.Info)
	assert.Equal(t, 5, report.Warnings)
	assert.Equal(t, 1, report.Critical)
	assert.Equal(t, 7, report.Total())
	assert.False(t, report.InSync())
}

func TestClassify_PreservesOrderAndInputs(t *testing.T) {
	discrepancies := []Discrepancy{
		{Kind: KindUnexpected, Entity: EntityMember, ID: "intruder"},
		{Kind: KindMissing, Entity: EntityTeam, ID: "infra"},
	}

	report := Classify(discrepancies)

	require.Len(t, report.Discrepancies, 2)
	assert.Equal(t, "intruder", report.Discrepancies[0].ID)
	assert.Equal(t, "infra", report.Discrepancies[1].ID)

	// The input slice stays unclassified
	assert.Empty(t, discrepancies[0].Severity)
	assert.Empty(t, discrepancies[1].Severity)
}

func TestClassify_EmptyReportIsInSync(t *testing.T) {
	report := Classify(nil)

	assert.True(t, report.InSync())
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, 0, report.CountAtLeast(SeverityInfo))
}

func TestReport_CountAtLeast(t *testing.T) {
	report := Classify([]Discrepancy{
		{Kind: KindUnexpected, Entity: EntityRepository, ID: "legacy"},
		{Kind: KindDrifted, Entity: EntityRepository, ID: "svc", Field: "visibility"},
		{Kind: KindOverPrivileged, Entity: EntityRepository, ID: "svc", Principal: "eve", PrincipalKind: EntityMember, Expected: "read", Actual: "admin"},
	})

	assert.Equal(t, 3, report.CountAtLeast(SeverityInfo))
	assert.Equal(t, 2, report.CountAtLeast(SeverityWarning))
	assert.Equal(t, 1, report.CountAtLeast(SeverityCritical))
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("warning")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, sev)

	_, err = ParseSeverity("fatal")
	require.Error(t, err)
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityInfo))
	assert.True(t, SeverityWarning.AtLeast(SeverityWarning))
	assert.False(t, SeverityInfo.AtLeast(SeverityWarning))
}
