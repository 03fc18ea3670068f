// Package document parses IAM policy documents and classifies what
// they allow into the fixed risk categories. The classifier works on
// the action patterns as written; wildcard grants are matched against
// the known-action tables rather than expanded.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/kavisec/iamscan/internal/models"
)

// Options widen which statements count as unconstrained.
type Options struct {
	// FlagConditionalStatements also flags grants guarded by Condition
	// keys.
	FlagConditionalStatements bool
	// FlagResourceARNStatements also flags grants scoped to specific
	// resource ARNs.
	FlagResourceARNStatements bool
}

// ActionFilter adjusts action-level results: always-excluded actions
// never appear in findings, always-included actions appear in the
// infrastructure-modification listing even when their verb looks
// read-only. The exclusions rule set implements it; a nil filter
// leaves results untouched.
type ActionFilter interface {
	IsActionAlwaysExcluded(action string) bool
	IsActionAlwaysIncluded(action string) bool
}

// PolicyDocument is a parsed policy body plus the risk classifiers
// over it. Build one with New; the zero value classifies nothing.
type PolicyDocument struct {
	version    string
	statements []Statement

	// unconstrained caches the Allow action patterns that pass the
	// constraint check, as written in the document.
	unconstrained []string

	opts   Options
	filter ActionFilter
}

// New parses a raw policy body. The body may be a JSON object or a
// URL-encoded JSON string, the two forms authorization dumps use.
func New(raw json.RawMessage, filter ActionFilter, opts Options) (*PolicyDocument, error) {
	body, err := normalizeBody(raw)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Version   string        `json:"Version"`
		Statement statementList `json:"Statement"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse policy document: %w", err)
	}

	d := &PolicyDocument{
		version:    parsed.Version,
		statements: parsed.Statement,
		opts:       opts,
		filter:     filter,
	}
	for i := range d.statements {
		s := &d.statements[i]
		if s.isAllow() && s.isUnconstrained(opts) {
			d.unconstrained = append(d.unconstrained, s.Action...)
		}
	}
	return d, nil
}

// normalizeBody returns the JSON object form of a document body,
// url-decoding the quoted form the IAM API returns.
func normalizeBody(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty policy document")
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var quoted string
	if err := json.Unmarshal(trimmed, &quoted); err != nil {
		return nil, fmt.Errorf("decode quoted policy document: %w", err)
	}
	unescaped, err := url.QueryUnescape(quoted)
	if err != nil {
		return nil, fmt.Errorf("url-decode policy document: %w", err)
	}
	return []byte(unescaped), nil
}

// Version returns the document's Version field.
func (d *PolicyDocument) Version() string { return d.version }

// allowsAction reports whether any unconstrained Allow pattern covers
// action and the filter does not exclude it.
func (d *PolicyDocument) allowsAction(action string) bool {
	if d.filter != nil && d.filter.IsActionAlwaysExcluded(action) {
		return false
	}
	for _, pattern := range d.unconstrained {
		if wildcardMatch(pattern, action) {
			return true
		}
	}
	return false
}

// findingsFromList returns one finding per known action the document
// allows without constraints, in table order.
func (d *PolicyDocument) findingsFromList(actions []string) []models.Finding {
	findings := []models.Finding{}
	for _, action := range actions {
		if d.allowsAction(action) {
			findings = append(findings, models.Finding{Type: action})
		}
	}
	return findings
}

// AllowsPrivilegeEscalation returns one finding per escalation method
// whose required actions are all allowed without constraints. The
// finding type names the method; Actions lists its required actions.
func (d *PolicyDocument) AllowsPrivilegeEscalation() []models.Finding {
	findings := []models.Finding{}
	for _, method := range privilegeEscalationMethods {
		matched := true
		for _, action := range method.actions {
			if !d.allowsAction(action) {
				matched = false
				break
			}
		}
		if matched {
			findings = append(findings, models.Finding{
				Type:    method.name,
				Actions: append([]string(nil), method.actions...),
			})
		}
	}
	return findings
}

// AllowsDataExfiltrationActions returns the allowed unconstrained
// actions from the data-exfiltration table.
func (d *PolicyDocument) AllowsDataExfiltrationActions() []models.Finding {
	return d.findingsFromList(dataExfiltrationActions)
}

// PermissionsManagementWithoutConstraints returns the allowed
// unconstrained permissions-management actions.
func (d *PolicyDocument) PermissionsManagementWithoutConstraints() []models.Finding {
	return d.findingsFromList(permissionsManagementActions)
}

// CredentialsExposure returns the allowed unconstrained actions that
// hand back credentials.
func (d *PolicyDocument) CredentialsExposure() []models.Finding {
	return d.findingsFromList(credentialsExposureActions)
}

// ServiceWildcard returns one finding per service granted wholesale
// via "service:*". A bare "*" action reports as the service "*". This
// check reads the statements as written and ignores resource and
// condition constraints.
func (d *PolicyDocument) ServiceWildcard() []models.Finding {
	seen := map[string]struct{}{}
	findings := []models.Finding{}
	for i := range d.statements {
		s := &d.statements[i]
		if !s.isAllow() {
			continue
		}
		for _, entry := range s.Action {
			var service string
			switch {
			case entry == "*":
				service = "*"
			case strings.HasSuffix(entry, ":*"):
				service = actionService(entry)
			default:
				continue
			}
			if _, dup := seen[service]; dup {
				continue
			}
			seen[service] = struct{}{}
			findings = append(findings, models.Finding{Type: service})
		}
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Type < findings[j].Type })
	return findings
}

// InfrastructureModification returns the allowed unconstrained action
// entries that can change infrastructure, deduplicated
// case-insensitively and sorted. Wildcard entries are reported as
// written; expanding them would require the full per-service action
// list.
func (d *PolicyDocument) InfrastructureModification() []string {
	seen := map[string]string{}
	for _, entry := range d.unconstrained {
		if d.filter != nil && d.filter.IsActionAlwaysExcluded(entry) {
			continue
		}
		if isReadOnlyAction(entry) && (d.filter == nil || !d.filter.IsActionAlwaysIncluded(entry)) {
			continue
		}
		lower := strings.ToLower(entry)
		if _, dup := seen[lower]; !dup {
			seen[lower] = entry
		}
	}

	actions := make([]string, 0, len(seen))
	for _, entry := range seen {
		actions = append(actions, entry)
	}
	sort.Slice(actions, func(i, j int) bool {
		return strings.ToLower(actions[i]) < strings.ToLower(actions[j])
	})
	return actions
}
