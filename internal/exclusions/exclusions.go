// Package exclusions decides which policies, principals, and actions
// are out of scope for a scan. Rules come from a YAML file or the
// built-in defaults.
package exclusions

import "strings"

// Matcher is the exclusion contract the policy scanner consults. The
// stock glob-based Exclusions satisfies it; any other implementation
// (regex, static set) can stand in.
type Matcher interface {
	// IsPolicyExcluded reports whether a policy identifier (name, id,
	// or path) matches a configured policy exclusion rule.
	IsPolicyExcluded(identifier string) bool

	// IsNameExcluded reports whether name matches the single glob
	// pattern, case-insensitively. A leading or trailing "*" in the
	// pattern matches any prefix or suffix.
	IsNameExcluded(name, pattern string) bool
}

// Exclusions is the stock rule set. Zero value excludes nothing; build
// one through New, Default, or Load.
type Exclusions struct {
	policies []string
	roles    []string
	users    []string
	groups   []string

	// action sets are lowercased at construction
	includeActions map[string]struct{}
	excludeActions map[string]struct{}
}

// New builds an Exclusions from cfg. Patterns are kept as written;
// action lists are normalized to lower case.
func New(cfg Config) *Exclusions {
	return &Exclusions{
		policies:       append([]string(nil), cfg.Policies...),
		roles:          append([]string(nil), cfg.Roles...),
		users:          append([]string(nil), cfg.Users...),
		groups:         append([]string(nil), cfg.Groups...),
		includeActions: lowerSet(cfg.IncludeActions),
		excludeActions: lowerSet(cfg.ExcludeActions),
	}
}

// Default returns the built-in rule set.
func Default() *Exclusions {
	return New(DefaultConfig())
}

func lowerSet(actions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

// IsPolicyExcluded reports whether identifier matches any configured
// policy rule.
func (e *Exclusions) IsPolicyExcluded(identifier string) bool {
	return matchesAny(identifier, e.policies)
}

// IsNameExcluded reports whether name matches pattern.
func (e *Exclusions) IsNameExcluded(name, pattern string) bool {
	return matchesPattern(name, pattern)
}

// IsRoleExcluded reports whether a role name matches a role rule.
func (e *Exclusions) IsRoleExcluded(name string) bool {
	return matchesAny(name, e.roles)
}

// IsGroupExcluded reports whether a group name matches a group rule.
func (e *Exclusions) IsGroupExcluded(name string) bool {
	return matchesAny(name, e.groups)
}

// IsUserExcluded reports whether a user name matches a user rule.
func (e *Exclusions) IsUserExcluded(name string) bool {
	return matchesAny(name, e.users)
}

// IsActionAlwaysExcluded reports whether action is on the
// exclude-actions list.
func (e *Exclusions) IsActionAlwaysExcluded(action string) bool {
	_, ok := e.excludeActions[strings.ToLower(action)]
	return ok
}

// IsActionAlwaysIncluded reports whether action is on the
// include-actions list.
func (e *Exclusions) IsActionAlwaysIncluded(action string) bool {
	_, ok := e.includeActions[strings.ToLower(action)]
	return ok
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if matchesPattern(name, p) {
			return true
		}
	}
	return false
}

// matchesPattern implements the case-insensitive glob dialect used in
// rule files: "x" exact, "x*" prefix, "*x" suffix, "*x*" substring.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return false
	}
	name = strings.ToLower(name)
	pattern = strings.ToLower(pattern)

	leading := strings.HasPrefix(pattern, "*")
	trailing := strings.HasSuffix(pattern, "*")
	inner := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case leading && trailing:
		return inner == "" || strings.Contains(name, inner)
	case leading:
		return strings.HasSuffix(name, inner)
	case trailing:
		return strings.HasPrefix(name, inner)
	default:
		return name == pattern
	}
}
