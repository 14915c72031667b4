package cmd

import (
	"fmt"
	"io"

	"orgdrift/pkg/drift"
)

// ANSI colors for severity tags when stdout is a terminal
const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorReset  = "\x1b[0m"
)

// renderReport writes the classified report in human-readable form.
// Discrepancies appear exactly in report order, one line each, with a
// summary block at the end.
func renderReport(w io.Writer, report *drift.Report, colorize bool) {
	if report.InSync() {
		fmt.Fprintf(w, "\n✅ Organization matches the manifest. No drift detected.\n")
		return
	}

	fmt.Fprintf(w, "\n📋 Drift detected:\n\n")

	for _, d := range report.Discrepancies {
		fmt.Fprintf(w, "  %s %s\n", severityTag(d.Severity, colorize), d)
	}

	fmt.Fprintf(w, "\n📊 Summary:\n")
	fmt.Fprintf(w, "  • Total discrepancies: %d\n", report.Total())
	fmt.Fprintf(w, "  • Info: %d\n", report.Info)
	fmt.Fprintf(w, "  • Warnings: %d\n", report.Warnings)
	fmt.Fprintf(w, "  • Critical: %d\n", report.Critical)
}

// severityTag renders the aligned severity marker for one report line
func severityTag(severity drift.Severity, colorize bool) string {
	tag := fmt.Sprintf("%-10s", "["+severity.String()+"]")
	if !colorize {
		return tag
	}

	switch severity {
	case drift.SeverityCritical:
		return colorRed + tag + colorReset
	case drift.SeverityWarning:
		return colorYellow + tag + colorReset
	default:
		return colorCyan + tag + colorReset
	}
}
