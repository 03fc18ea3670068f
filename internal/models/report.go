package models

import "time"

// AttachedPrincipals lists the display names of principals a policy is
// attached to, one list per principal category. All three lists are
// present even when empty.
type AttachedPrincipals struct {
	Roles  []string `json:"roles"`
	Groups []string `json:"groups"`
	Users  []string `json:"users"`
}

// EmptyAttachedPrincipals returns an attachment result with all three
// lists allocated and empty. Excluded policies always report this.
func EmptyAttachedPrincipals() AttachedPrincipals {
	return AttachedPrincipals{Roles: []string{}, Groups: []string{}, Users: []string{}}
}

// CategoryReport is the per-category section of a policy risk report.
// Severity and Description are static category metadata and are always
// populated; Findings is emptied when the severity filter drops the
// category. Links carries documentation URLs and is only populated for
// privilege escalation.
type CategoryReport struct {
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	Findings    []Finding         `json:"findings"`
	Links       map[string]string `json:"links,omitempty"`
}

// PolicyReport is the full risk report for one managed policy. Identity
// and metadata fields, the attachment result, and the exclusion flag
// are never subject to severity filtering. InfrastructureModification
// is only present in the extended report variant.
type PolicyReport struct {
	PolicyName                    string     `json:"PolicyName"`
	PolicyID                      string     `json:"PolicyId"`
	Arn                           string     `json:"Arn"`
	Path                          string     `json:"Path"`
	DefaultVersionID              *string    `json:"DefaultVersionId"`
	AttachmentCount               *int32     `json:"AttachmentCount"`
	PermissionsBoundaryUsageCount *int32     `json:"PermissionsBoundaryUsageCount"`
	IsAttachable                  *bool      `json:"IsAttachable"`
	CreateDate                    *time.Time `json:"CreateDate"`
	UpdateDate                    *time.Time `json:"UpdateDate"`

	AttachedTo AttachedPrincipals `json:"AttachedTo"`

	PrivilegeEscalation        CategoryReport  `json:"PrivilegeEscalation"`
	DataExfiltration           CategoryReport  `json:"DataExfiltration"`
	ResourceExposure           CategoryReport  `json:"ResourceExposure"`
	ServiceWildcard            CategoryReport  `json:"ServiceWildcard"`
	CredentialsExposure        CategoryReport  `json:"CredentialsExposure"`
	InfrastructureModification *CategoryReport `json:"InfrastructureModification,omitempty"`

	IsExcluded bool `json:"is_excluded"`
}

// Category returns the report section for c, or nil when the report
// does not carry that category.
func (r *PolicyReport) Category(c RiskCategory) *CategoryReport {
	switch c {
	case CategoryPrivilegeEscalation:
		return &r.PrivilegeEscalation
	case CategoryDataExfiltration:
		return &r.DataExfiltration
	case CategoryResourceExposure:
		return &r.ResourceExposure
	case CategoryServiceWildcard:
		return &r.ServiceWildcard
	case CategoryCredentialsExposure:
		return &r.CredentialsExposure
	case CategoryInfrastructureModification:
		return r.InfrastructureModification
	}
	return nil
}

// FindingCount sums the findings across every category the report carries.
func (r *PolicyReport) FindingCount() int {
	total := 0
	for _, c := range AllCategories() {
		if section := r.Category(c); section != nil {
			total += len(section.Findings)
		}
	}
	return total
}

// ScanSummary aggregates counts across one scan run.
type ScanSummary struct {
	TotalPolicies        int                  `json:"total_policies"`
	ScannedPolicies      int                  `json:"scanned_policies"`
	ExcludedPolicies     int                  `json:"excluded_policies"`
	PoliciesWithFindings int                  `json:"policies_with_findings"`
	FindingsByCategory   map[RiskCategory]int `json:"findings_by_category"`
	FindingsBySeverity   map[Severity]int     `json:"findings_by_severity"`
}

// ScanReport is the top-level output of a scan run. Policies maps
// policy id to that policy's risk report.
type ScanReport struct {
	ReportID    string                  `json:"report_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	AccountID   string                  `json:"account_id"`
	Summary     ScanSummary             `json:"summary"`
	Policies    map[string]PolicyReport `json:"policies"`

	// InfrastructureModificationActions is the deduplicated, sorted
	// union of infrastructure-modification actions across all scanned
	// policies.
	InfrastructureModificationActions []string `json:"infrastructure_modification_actions"`
}
