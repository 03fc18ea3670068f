// Package scan holds the managed-policy risk core: it decides which
// policies are in scope, resolves each policy's default-version
// document, assembles severity-gated risk reports, and answers which
// principals a policy is attached to.
package scan

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/kavisec/iamscan/internal/document"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/models"
)

// Service-linked role paths are dropped unconditionally; the dump
// writes them with and without a leading slash.
const (
	serviceRolePathPattern      = "aws-service-role*"
	slashServiceRolePathPattern = "/aws-service-role*"
)

// privilegeEscalationDocBase prefixes the per-method documentation
// links emitted with privilege escalation findings.
const privilegeEscalationDocBase = "https://cloudsplaining.readthedocs.io/en/latest/glossary/privilege-escalation/#"

// RiskDocument produces the typed findings a risk report is assembled
// from. *document.PolicyDocument is the stock implementation.
type RiskDocument interface {
	AllowsPrivilegeEscalation() []models.Finding
	AllowsDataExfiltrationActions() []models.Finding
	PermissionsManagementWithoutConstraints() []models.Finding
	ServiceWildcard() []models.Finding
	CredentialsExposure() []models.Finding
	InfrastructureModification() []string
}

var _ RiskDocument = (*document.PolicyDocument)(nil)

// ManagedPolicy wraps one managed policy record: identity and metadata,
// the resolved default-version document, the exclusion flag computed
// once at construction, and the severity filter its reports apply.
// Instances are read-only after construction apart from the inventory
// snapshot reference, which propagation replaces as a whole.
type ManagedPolicy struct {
	record    models.PolicyRecord
	excluded  bool
	doc       RiskDocument
	filter    models.SeverityFilter
	inventory *models.Inventory
}

// NewManagedPolicy builds a policy from one record. It fails when excl
// is nil or when no entry of the record's version list is flagged as
// the default version.
func NewManagedPolicy(record models.PolicyRecord, excl exclusions.Matcher, opts document.Options, filter models.SeverityFilter) (*ManagedPolicy, error) {
	if excl == nil {
		return nil, ErrNilExclusions
	}

	body, ok := defaultVersionDocument(record)
	if !ok {
		return nil, &NoDefaultVersionError{PolicyName: record.PolicyName}
	}

	// The concrete exclusions also filter individual actions; other
	// matcher implementations may not, and that is fine.
	actionFilter, _ := excl.(document.ActionFilter)
	doc, err := document.New(body, actionFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", record.PolicyName, err)
	}

	return &ManagedPolicy{
		record:   record,
		excluded: isRecordExcluded(record, excl),
		doc:      doc,
		filter:   filter,
	}, nil
}

// defaultVersionDocument returns the body of the version flagged as
// default, if the record has one.
func defaultVersionDocument(record models.PolicyRecord) (json.RawMessage, bool) {
	for _, v := range record.PolicyVersionList {
		if v.IsDefaultVersion {
			return v.Document, true
		}
	}
	return nil, false
}

// isRecordExcluded applies the exclusion precedence: a rule matching
// name, id, or path excludes, and a service-role path always excludes.
func isRecordExcluded(record models.PolicyRecord, excl exclusions.Matcher) bool {
	return excl.IsPolicyExcluded(record.PolicyName) ||
		excl.IsPolicyExcluded(record.PolicyID) ||
		excl.IsPolicyExcluded(record.Path) ||
		hasServiceRolePath(record.Path, excl)
}

// hasServiceRolePath checks the unconditional service-role path
// exclusion, with and without the leading slash.
func hasServiceRolePath(path string, excl exclusions.Matcher) bool {
	return excl.IsNameExcluded(path, serviceRolePathPattern) ||
		excl.IsNameExcluded(path, slashServiceRolePathPattern)
}

// Name returns the policy name.
func (p *ManagedPolicy) Name() string { return p.record.PolicyName }

// ID returns the policy id.
func (p *ManagedPolicy) ID() string { return p.record.PolicyID }

// ARN returns the policy arn.
func (p *ManagedPolicy) ARN() string { return p.record.Arn }

// Path returns the policy path.
func (p *ManagedPolicy) Path() string { return p.record.Path }

// IsExcluded reports the exclusion flag computed at construction. It
// never changes afterwards.
func (p *ManagedPolicy) IsExcluded() bool { return p.excluded }

// Document returns the resolved default-version risk document.
func (p *ManagedPolicy) Document() RiskDocument { return p.doc }

// Origin classifies the policy by arn shape: AWS-managed policies live
// under the fixed aws account alias, everything else is
// customer-managed.
func (p *ManagedPolicy) Origin() models.PolicyOrigin {
	return models.OriginOf(p.record.Arn)
}

// AccountID returns "N/A" for AWS-managed policies and the owning
// account parsed from the arn for customer-managed ones. A customer
// arn that does not parse, or parses without an account, yields a
// MalformedARNError.
func (p *ManagedPolicy) AccountID() (string, error) {
	if p.Origin() == models.OriginAWS {
		return "N/A", nil
	}
	parsed, err := arn.Parse(p.record.Arn)
	if err != nil || parsed.AccountID == "" {
		return "", &MalformedARNError{ARN: p.record.Arn}
	}
	return parsed.AccountID, nil
}

// SetInventory replaces the inventory snapshot this policy consults.
// Collection propagation calls it for every retained policy.
func (p *ManagedPolicy) SetInventory(inv *models.Inventory) {
	p.inventory = inv
}

// AttachedPrincipals reports which principals reference this policy in
// the current snapshot. An excluded policy always answers with empty
// lists no matter what the snapshot holds; that check comes first.
func (p *ManagedPolicy) AttachedPrincipals() models.AttachedPrincipals {
	attached := models.EmptyAttachedPrincipals()
	if p.excluded || p.inventory == nil {
		return attached
	}
	attached.Roles = p.attachedNames(p.inventory.Roles)
	attached.Groups = p.attachedNames(p.inventory.Groups)
	attached.Users = p.attachedNames(p.inventory.Users)
	return attached
}

// attachedNames walks one principal category in ascending principal-id
// order and collects the display names of principals whose reference
// map for this policy's origin contains its id.
func (p *ManagedPolicy) attachedNames(principals map[string]models.PrincipalPolicies) []string {
	ids := make([]string, 0, len(principals))
	for id := range principals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	awsManaged := p.Origin() == models.OriginAWS
	names := []string{}
	for _, id := range ids {
		refs := principals[id]
		set := refs.CustomerManaged
		if awsManaged {
			set = refs.AWSManaged
		}
		if _, ok := set[p.record.PolicyID]; ok {
			names = append(names, refs.Name)
		}
	}
	return names
}

// RiskReport assembles the policy's report. The extended variant adds
// the infrastructure-modification category; every other field is
// shared between the two variants. Identity, metadata, attachments,
// and the exclusion flag are never subject to severity filtering.
func (p *ManagedPolicy) RiskReport(extended bool) models.PolicyReport {
	r := models.PolicyReport{
		PolicyName:                    p.record.PolicyName,
		PolicyID:                      p.record.PolicyID,
		Arn:                           p.record.Arn,
		Path:                          p.record.Path,
		DefaultVersionID:              p.record.DefaultVersionID,
		AttachmentCount:               p.record.AttachmentCount,
		PermissionsBoundaryUsageCount: p.record.PermissionsBoundaryUsageCount,
		IsAttachable:                  p.record.IsAttachable,
		CreateDate:                    p.record.CreateDate,
		UpdateDate:                    p.record.UpdateDate,
		AttachedTo:                    p.AttachedPrincipals(),
		IsExcluded:                    p.excluded,
	}

	r.PrivilegeEscalation = p.categoryReport(models.CategoryPrivilegeEscalation)
	r.DataExfiltration = p.categoryReport(models.CategoryDataExfiltration)
	r.ResourceExposure = p.categoryReport(models.CategoryResourceExposure)
	r.ServiceWildcard = p.categoryReport(models.CategoryServiceWildcard)
	r.CredentialsExposure = p.categoryReport(models.CategoryCredentialsExposure)
	if extended {
		section := p.categoryReport(models.CategoryInfrastructureModification)
		r.InfrastructureModification = &section
	}
	return r
}

// categoryReport emits one category section: static severity and
// description always, findings only when the severity filter keeps the
// category, and documentation links for included privilege escalation
// findings.
func (p *ManagedPolicy) categoryReport(c models.RiskCategory) models.CategoryReport {
	section := models.CategoryReport{
		Severity:    models.CategorySeverity(c),
		Description: models.CategoryDescription(c),
		Findings:    []models.Finding{},
	}
	if !p.filter.Includes(c) {
		return section
	}

	switch c {
	case models.CategoryPrivilegeEscalation:
		section.Findings = p.doc.AllowsPrivilegeEscalation()
		section.Links = escalationLinks(section.Findings)
	case models.CategoryDataExfiltration:
		section.Findings = p.doc.AllowsDataExfiltrationActions()
	case models.CategoryResourceExposure:
		section.Findings = p.doc.PermissionsManagementWithoutConstraints()
	case models.CategoryServiceWildcard:
		section.Findings = p.doc.ServiceWildcard()
	case models.CategoryCredentialsExposure:
		section.Findings = p.doc.CredentialsExposure()
	case models.CategoryInfrastructureModification:
		section.Findings = actionsAsFindings(p.doc.InfrastructureModification())
	}
	return section
}

// escalationLinks maps each included finding type to its documentation
// anchor. Filtered-out findings produce no links because the findings
// list they would describe is empty.
func escalationLinks(findings []models.Finding) map[string]string {
	if len(findings) == 0 {
		return nil
	}
	links := make(map[string]string, len(findings))
	for _, f := range findings {
		links[f.Type] = privilegeEscalationDocBase + f.Type
	}
	return links
}

func actionsAsFindings(actions []string) []models.Finding {
	findings := make([]models.Finding, 0, len(actions))
	for _, a := range actions {
		findings = append(findings, models.Finding{Type: a})
	}
	return findings
}
