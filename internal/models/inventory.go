package models

// PrincipalPolicies records one principal's display name and its
// attached managed policies. Both maps are keyed by policy id with the
// policy name as value; they are split by origin because attachment
// queries consult exactly one of them depending on how the policy is
// managed.
type PrincipalPolicies struct {
	Name            string            `json:"name"`
	AWSManaged      map[string]string `json:"aws_managed_policies"`
	CustomerManaged map[string]string `json:"customer_managed_policies"`
}

// NewPrincipalPolicies returns an entry for name with both reference
// maps allocated.
func NewPrincipalPolicies(name string) PrincipalPolicies {
	return PrincipalPolicies{
		Name:            name,
		AWSManaged:      map[string]string{},
		CustomerManaged: map[string]string{},
	}
}

// Inventory is the IAM principal snapshot consulted by attachment
// queries, keyed by principal id per category. The snapshot is shared
// by reference across a whole policy collection and replaced as a
// whole; keeping a single writer while reports read is the caller's
// responsibility.
type Inventory struct {
	Roles  map[string]PrincipalPolicies `json:"roles"`
	Groups map[string]PrincipalPolicies `json:"groups"`
	Users  map[string]PrincipalPolicies `json:"users"`
}

// NewInventory returns an empty snapshot with all maps allocated.
func NewInventory() *Inventory {
	return &Inventory{
		Roles:  map[string]PrincipalPolicies{},
		Groups: map[string]PrincipalPolicies{},
		Users:  map[string]PrincipalPolicies{},
	}
}
