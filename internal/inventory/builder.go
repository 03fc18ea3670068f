// Package inventory builds the principal attachment snapshot that
// policy reports cross-reference. The snapshot is rebuilt from a full
// authorization details dump and swapped in wholesale.
package inventory

import (
	"github.com/kavisec/iamscan/internal/models"
	"github.com/kavisec/iamscan/internal/scan"
)

// PolicyResolver resolves a policy arn to its retained policy. A
// lookup miss means the policy was removed by exclusion filtering and
// its attachments are not recorded.
type PolicyResolver interface {
	Lookup(policyARN string) (*scan.ManagedPolicy, error)
}

// PrincipalFilter removes principals from the snapshot by name. A nil
// filter keeps every principal.
type PrincipalFilter interface {
	IsRoleExcluded(name string) bool
	IsGroupExcluded(name string) bool
	IsUserExcluded(name string) bool
}

// Build assembles the attachment snapshot from an authorization
// details dump. Every surviving principal gets an entry keyed by its
// stable id, with its attached managed policies split by origin into
// the aws-managed and customer-managed reference maps.
func Build(details *models.AuthorizationDetails, resolver PolicyResolver, filter PrincipalFilter) *models.Inventory {
	inv := models.NewInventory()
	if details == nil {
		return inv
	}

	for _, role := range details.RoleDetailList {
		if filter != nil && filter.IsRoleExcluded(role.RoleName) {
			continue
		}
		inv.Roles[role.RoleID] = principalEntry(role.RoleName, role.AttachedManagedPolicies, resolver)
	}
	for _, group := range details.GroupDetailList {
		if filter != nil && filter.IsGroupExcluded(group.GroupName) {
			continue
		}
		inv.Groups[group.GroupID] = principalEntry(group.GroupName, group.AttachedManagedPolicies, resolver)
	}
	for _, user := range details.UserDetailList {
		if filter != nil && filter.IsUserExcluded(user.UserName) {
			continue
		}
		inv.Users[user.UserID] = principalEntry(user.UserName, user.AttachedManagedPolicies, resolver)
	}
	return inv
}

// principalEntry records one principal's attachment references. Arns
// that do not resolve, and policies flagged excluded, contribute
// nothing.
func principalEntry(name string, refs []models.AttachedPolicyRef, resolver PolicyResolver) models.PrincipalPolicies {
	entry := models.NewPrincipalPolicies(name)
	if resolver == nil {
		return entry
	}

	for _, ref := range refs {
		p, err := resolver.Lookup(ref.PolicyArn)
		if err != nil || p.IsExcluded() {
			continue
		}
		if p.Origin() == models.OriginAWS {
			entry.AWSManaged[p.ID()] = p.Name()
		} else {
			entry.CustomerManaged[p.ID()] = p.Name()
		}
	}
	return entry
}
