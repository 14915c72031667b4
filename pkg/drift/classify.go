package drift

import "fmt"

// Severity represents how urgently a discrepancy needs attention
type Severity string

const (
	// SeverityInfo marks additive-only extras that may have been
	// sanctioned out-of-band
	SeverityInfo Severity = "info"
	// SeverityWarning marks drift from declared intent
	SeverityWarning Severity = "warning"
	// SeverityCritical marks privilege escalation to admin beyond
	// declared intent
	SeverityCritical Severity = "critical"
)

// severityLevels orders severities from least to most urgent
var severityLevels = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// ParseSeverity parses a severity from its string form
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityLevels[sev]; !ok {
		return SeverityInfo, fmt.Errorf("invalid severity '%s': must be one of: info, warning, critical", s)
	}
	return sev, nil
}

// AtLeast returns true if s is as urgent as min or more
func (s Severity) AtLeast(min Severity) bool {
	return severityLevels[s] >= severityLevels[min]
}

// String returns the severity in its configuration form
func (s Severity) String() string {
	return string(s)
}

// Report is the classified outcome of one comparison. Discrepancies
// keep the order the diff engine emitted them in, with severities
// assigned.
type Report struct {
	Discrepancies []Discrepancy `json:"discrepancies"`
	Info          int           `json:"info"`
	Warnings      int           `json:"warnings"`
	Critical      int           `json:"critical"`
}

// Classify assigns each discrepancy a severity and tallies the totals.
// The input is not mutated and its order is preserved.
func Classify(discrepancies []Discrepancy) *Report {
	report := &Report{
		Discrepancies: make([]Discrepancy, len(discrepancies)),
	}
	copy(report.Discrepancies, discrepancies)

	for i := range report.Discrepancies {
		severity := severityFor(report.Discrepancies[i])
		report.Discrepancies[i].Severity = severity

		switch severity {
		case SeverityInfo:
			report.Info++
		case SeverityWarning:
			report.Warnings++
		case SeverityCritical:
			report.Critical++
		}
	}

	return report
}

// severityFor maps a discrepancy to its severity. Unexpected extras
// are informational; a principal holding admin beyond declared intent
// is critical; everything else is a warning.
func severityFor(d Discrepancy) Severity {
	switch {
	case d.Kind == KindOverPrivileged && Permission(d.Actual) == PermissionAdmin:
		return SeverityCritical
	case d.Kind == KindUnexpected:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// Total returns the number of discrepancies in the report
func (r *Report) Total() int {
	return len(r.Discrepancies)
}

// InSync returns true when the comparison found no discrepancies
func (r *Report) InSync() bool {
	return len(r.Discrepancies) == 0
}

// CountAtLeast returns the number of discrepancies at or above the
// given severity, used for exit-status thresholds.
func (r *Report) CountAtLeast(min Severity) int {
	count := 0
	for _, d := range r.Discrepancies {
		if d.Severity.AtLeast(min) {
			count++
		}
	}
	return count
}
