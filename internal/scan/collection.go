package scan

import (
	"sort"

	"github.com/kavisec/iamscan/internal/document"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/models"
)

// ManagedPolicyCollection owns the policies that survived exclusion
// filtering and answers aggregate queries over them. All members share
// the exclusion rules, document options, severity filter, and the
// inventory snapshot reference.
type ManagedPolicyCollection struct {
	policies  []*ManagedPolicy
	inventory *models.Inventory
	dropped   int
}

// NewManagedPolicyCollection filters records through the exclusion
// rules and builds the retained policies. A record whose path begins
// with aws-service-role (leading slash or not) is dropped
// unconditionally and no rule can override that; other records are
// dropped when a rule matches their name, id, or path. Construction
// fails on a nil matcher or on any record without a default version,
// and no partial collection is returned.
func NewManagedPolicyCollection(records []models.PolicyRecord, excl exclusions.Matcher, opts document.Options, filter models.SeverityFilter) (*ManagedPolicyCollection, error) {
	if excl == nil {
		return nil, ErrNilExclusions
	}

	c := &ManagedPolicyCollection{}
	for _, record := range records {
		if hasServiceRolePath(record.Path, excl) {
			c.dropped++
			continue
		}
		if excl.IsPolicyExcluded(record.PolicyName) ||
			excl.IsPolicyExcluded(record.PolicyID) ||
			excl.IsPolicyExcluded(record.Path) {
			c.dropped++
			continue
		}

		p, err := NewManagedPolicy(record, excl, opts, filter)
		if err != nil {
			return nil, err
		}
		c.policies = append(c.policies, p)
	}
	return c, nil
}

// Policies returns the retained policies in input order.
func (c *ManagedPolicyCollection) Policies() []*ManagedPolicy { return c.policies }

// Dropped returns how many input records the exclusion rules removed.
func (c *ManagedPolicyCollection) Dropped() int { return c.dropped }

// Lookup returns the retained policy with the given arn. Repeated
// calls for the same arn return the same instance. A miss is a
// PolicyNotFoundError.
func (c *ManagedPolicyCollection) Lookup(policyARN string) (*ManagedPolicy, error) {
	for _, p := range c.policies {
		if p.ARN() == policyARN {
			return p, nil
		}
	}
	return nil, &PolicyNotFoundError{ARN: policyARN}
}

// InfrastructureModificationActions returns the union of every
// retained policy's infrastructure-modification actions, deduplicated
// and sorted ascending.
func (c *ManagedPolicyCollection) InfrastructureModificationActions() []string {
	seen := map[string]struct{}{}
	for _, p := range c.policies {
		for _, action := range p.Document().InfrastructureModification() {
			seen[action] = struct{}{}
		}
	}

	actions := make([]string, 0, len(seen))
	for a := range seen {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Reports maps policy id to risk report for every retained policy.
// Reports are recomputed on every call from current state.
func (c *ManagedPolicyCollection) Reports(extended bool) map[string]models.PolicyReport {
	reports := make(map[string]models.PolicyReport, len(c.policies))
	for _, p := range c.policies {
		reports[p.ID()] = p.RiskReport(extended)
	}
	return reports
}

// ReportsByOrigin is Reports restricted to policies whose origin
// classification equals origin.
func (c *ManagedPolicyCollection) ReportsByOrigin(origin models.PolicyOrigin, extended bool) map[string]models.PolicyReport {
	reports := map[string]models.PolicyReport{}
	for _, p := range c.policies {
		if p.Origin() == origin {
			reports[p.ID()] = p.RiskReport(extended)
		}
	}
	return reports
}

// PropagateInventory replaces the shared snapshot and pushes it to
// every retained policy. Replacement is whole, never incremental:
// concurrent readers observe the old snapshot or the new one, never a
// mix. Keeping a single writer is the caller's responsibility.
func (c *ManagedPolicyCollection) PropagateInventory(inv *models.Inventory) {
	c.inventory = inv
	for _, p := range c.policies {
		p.SetInventory(inv)
	}
}

// Inventory returns the snapshot last propagated, which may be nil
// before the first propagation.
func (c *ManagedPolicyCollection) Inventory() *models.Inventory { return c.inventory }
