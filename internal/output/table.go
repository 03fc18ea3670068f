package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/kavisec/iamscan/internal/models"
)

// TableOptions controls how RenderTable and RenderSummary format their
// output.
type TableOptions struct {
	// Colored wraps severity labels with color codes. Default false
	// (CI-safe); the color package additionally disables itself on
	// non-terminal writers.
	Colored bool

	// IncludeAttachments adds an ATTACHED column counting the
	// principals each policy is attached to.
	IncludeAttachments bool
}

// severityRank orders severities for sorting and worst-of selection
// (lower = more severe).
var severityRank = map[models.Severity]int{
	models.SeverityHigh:   0,
	models.SeverityMedium: 1,
	models.SeverityLow:    2,
}

// severityColor picks the color for a severity label.
func severityColor(sev models.Severity) *color.Color {
	switch sev {
	case models.SeverityHigh:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgBlue)
	}
}

// severityCell returns the severity padded to width characters. Color
// codes wrap only the text; trailing padding spaces are plain so
// subsequent columns stay visually aligned regardless of terminal ANSI
// support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	if !colored {
		return text + strings.Repeat(" ", spaces)
	}
	return severityColor(sev).Sprint(text) + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max bytes for name/label columns.
// A single-char ellipsis replaces the last byte when truncation occurs.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// worstSeverity returns the most severe category that actually has
// findings, or "" when the report is clean.
func worstSeverity(r *models.PolicyReport) models.Severity {
	worst := models.Severity("")
	rank := len(severityRank)
	for _, c := range models.AllCategories() {
		section := r.Category(c)
		if section == nil || len(section.Findings) == 0 {
			continue
		}
		if sr, ok := severityRank[section.Severity]; ok && sr < rank {
			rank = sr
			worst = section.Severity
		}
	}
	return worst
}

// categorySummary renders the non-empty categories of a report as
// "Name:count" pairs in the fixed category order.
func categorySummary(r *models.PolicyReport) string {
	var parts []string
	for _, c := range models.AllCategories() {
		section := r.Category(c)
		if section == nil || len(section.Findings) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d", c, len(section.Findings)))
	}
	return strings.Join(parts, " ")
}

// tableRow pairs a policy report with its sort keys.
type tableRow struct {
	report *models.PolicyReport
	worst  models.Severity
	count  int
}

// RenderTable writes the per-policy findings table to w. Rows are
// sorted most severe first, ties broken by finding count descending,
// then by policy name.
//
// Column order:
//
//	POLICY  ORIGIN  SEVERITY  FINDINGS  [ATTACHED]  CATEGORIES
func RenderTable(w io.Writer, report *models.ScanReport, opts TableOptions) {
	if report == nil || len(report.Policies) == 0 {
		fmt.Fprintln(w, "No policies scanned.")
		return
	}

	rows := make([]tableRow, 0, len(report.Policies))
	for id := range report.Policies {
		r := report.Policies[id]
		rows = append(rows, tableRow{
			report: &r,
			worst:  worstSeverity(&r),
			count:  r.FindingCount(),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		ri, iKnown := severityRank[rows[i].worst]
		rj, jKnown := severityRank[rows[j].worst]
		if !iKnown {
			ri = len(severityRank)
		}
		if !jKnown {
			rj = len(severityRank)
		}
		if ri != rj {
			return ri < rj
		}
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].report.PolicyName < rows[j].report.PolicyName
	})

	const (
		wPolicy   = 32
		wOrigin   = 10
		wSeverity = 10
		wCount    = 8
		wAttached = 8
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wPolicy, "POLICY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wOrigin, "ORIGIN"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSeverity, "SEVERITY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wCount, "FINDINGS"))
	if opts.IncludeAttachments {
		hb.WriteString(fmt.Sprintf("  %-*s", wAttached, "ATTACHED"))
	}
	hb.WriteString("  CATEGORIES")
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, row := range rows {
		r := row.report
		severity := row.worst
		severityText := string(severity)
		if severityText == "" {
			severityText = "-"
		}

		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wPolicy, truncateField(r.PolicyName, wPolicy)))
		rb.WriteString(fmt.Sprintf("  %-*s", wOrigin, models.OriginOf(r.Arn)))
		if severityText == "-" {
			rb.WriteString(fmt.Sprintf("  %-*s", wSeverity, severityText))
		} else {
			rb.WriteString("  " + severityCell(severity, wSeverity, opts.Colored))
		}
		rb.WriteString(fmt.Sprintf("  %-*d", wCount, row.count))
		if opts.IncludeAttachments {
			attached := len(r.AttachedTo.Roles) + len(r.AttachedTo.Groups) + len(r.AttachedTo.Users)
			rb.WriteString(fmt.Sprintf("  %-*d", wAttached, attached))
		}
		rb.WriteString("  " + categorySummary(r))
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderSummary writes the run-level summary block to w.
func RenderSummary(w io.Writer, report *models.ScanReport, opts TableOptions) {
	if report == nil {
		return
	}

	fmt.Fprintf(w, "Report:    %s\n", report.ReportID)
	if report.AccountID != "" {
		fmt.Fprintf(w, "Account:   %s\n", report.AccountID)
	}
	fmt.Fprintf(w, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	s := report.Summary
	fmt.Fprintf(w, "Policies:  %d scanned, %d excluded, %d with findings\n",
		s.ScannedPolicies, s.ExcludedPolicies, s.PoliciesWithFindings)

	if parts := severityCounts(s, opts.Colored); parts != "" {
		fmt.Fprintf(w, "Findings:  %s\n", parts)
	}
}

// severityCounts renders the non-zero severity counters most severe
// first.
func severityCounts(s models.ScanSummary, colored bool) string {
	ordered := []models.Severity{models.SeverityHigh, models.SeverityMedium, models.SeverityLow}
	var parts []string
	for _, sev := range ordered {
		count := s.FindingsBySeverity[sev]
		if count == 0 {
			continue
		}
		label := string(sev)
		if colored {
			label = severityColor(sev).Sprint(label)
		}
		parts = append(parts, fmt.Sprintf("%s %d", label, count))
	}
	return strings.Join(parts, ", ")
}
