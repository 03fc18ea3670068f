package models

import (
	"fmt"
	"sort"
	"strings"
)

// RiskCategory identifies one of the fixed risk categories a managed
// policy document is assessed against.
type RiskCategory string

const (
	CategoryPrivilegeEscalation        RiskCategory = "PrivilegeEscalation"
	CategoryDataExfiltration           RiskCategory = "DataExfiltration"
	CategoryResourceExposure           RiskCategory = "ResourceExposure"
	CategoryServiceWildcard            RiskCategory = "ServiceWildcard"
	CategoryCredentialsExposure        RiskCategory = "CredentialsExposure"
	CategoryInfrastructureModification RiskCategory = "InfrastructureModification"
)

// BaselineCategories returns the five categories present in every risk
// report. CategoryInfrastructureModification joins them only when the
// extended report variant is requested.
func BaselineCategories() []RiskCategory {
	return []RiskCategory{
		CategoryPrivilegeEscalation,
		CategoryDataExfiltration,
		CategoryResourceExposure,
		CategoryServiceWildcard,
		CategoryCredentialsExposure,
	}
}

// AllCategories returns every known category including the extended one.
func AllCategories() []RiskCategory {
	return append(BaselineCategories(), CategoryInfrastructureModification)
}

// Severity represents the fixed impact level assigned to a risk
// category. Unlike findings, which come and go per policy, a category's
// severity never varies.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// categoryMeta is the static metadata emitted for a category whether or
// not its findings survive the severity filter.
type categoryMeta struct {
	severity    Severity
	description string
}

var categoryDetails = map[RiskCategory]categoryMeta{
	CategoryPrivilegeEscalation: {
		severity: SeverityHigh,
		description: "Allows a combination of IAM actions that let a principal " +
			"escalate its own privileges, for example by creating a new policy " +
			"version or attaching a broader policy to itself.",
	},
	CategoryDataExfiltration: {
		severity: SeverityMedium,
		description: "Allows reading sensitive data in bulk without resource " +
			"constraints, such as S3 objects, SSM parameters, or Secrets " +
			"Manager secrets.",
	},
	CategoryResourceExposure: {
		severity: SeverityHigh,
		description: "Allows permissions-management actions that can expose " +
			"resources to other accounts or the public, such as modifying " +
			"resource policies or ACLs.",
	},
	CategoryServiceWildcard: {
		severity: SeverityMedium,
		description: "Grants every action for at least one service via " +
			"\"service:*\", including any actions the service adds later.",
	},
	CategoryCredentialsExposure: {
		severity: SeverityHigh,
		description: "Allows actions that return credentials or secrets as " +
			"part of the API response, such as sts:AssumeRole or " +
			"ecr:GetAuthorizationToken.",
	},
	CategoryInfrastructureModification: {
		severity: SeverityLow,
		description: "Allows actions that modify infrastructure without " +
			"resource constraints.",
	},
}

// CategorySeverity returns the fixed severity label for a category.
func CategorySeverity(c RiskCategory) Severity {
	return categoryDetails[c].severity
}

// CategoryDescription returns the static description text for a category.
func CategoryDescription(c RiskCategory) string {
	return categoryDetails[c].description
}

// Finding is a single risky condition detected in a policy document,
// tagged with the finding type that produced it. For privilege
// escalation the type names the escalation method and Actions lists the
// matched actions; for action-derived categories the type is the action
// or service itself.
type Finding struct {
	Type    string   `json:"type"`
	Actions []string `json:"actions,omitempty"`
}

// SeverityFilter is the set of risk categories whose findings are
// populated in reports. The empty set is the unfiltered sentinel:
// every category's findings pass through.
type SeverityFilter map[RiskCategory]struct{}

// Unfiltered is the empty severity filter; all findings pass.
func Unfiltered() SeverityFilter { return SeverityFilter{} }

// categoryLabels maps the lowercased category name to its category.
var categoryLabels = func() map[string]RiskCategory {
	m := make(map[string]RiskCategory, len(categoryDetails))
	for c := range categoryDetails {
		m[strings.ToLower(string(c))] = c
	}
	return m
}()

// ParseSeverityFilter builds a filter from user-supplied category
// labels, matched case-insensitively. An empty input yields the
// unfiltered sentinel. Unknown labels are an error naming the valid set.
func ParseSeverityFilter(labels []string) (SeverityFilter, error) {
	f := SeverityFilter{}
	for _, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		if key == "" {
			continue
		}
		c, ok := categoryLabels[key]
		if !ok {
			return nil, fmt.Errorf("unknown risk category %q (valid: %s)",
				label, strings.Join(validCategoryLabels(), ", "))
		}
		f[c] = struct{}{}
	}
	return f, nil
}

func validCategoryLabels() []string {
	labels := make([]string, 0, len(categoryLabels))
	for l := range categoryLabels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Includes reports whether findings for the category should be
// populated under this filter.
func (f SeverityFilter) Includes(c RiskCategory) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[c]
	return ok
}
