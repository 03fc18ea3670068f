package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stringOrList accepts the policy-grammar fields that may be a single
// JSON string or a list of strings.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = stringOrList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = stringOrList(list)
	return nil
}

// Statement is one statement of a policy document.
type Statement struct {
	Sid         string                     `json:"Sid,omitempty"`
	Effect      string                     `json:"Effect"`
	Action      stringOrList               `json:"Action,omitempty"`
	NotAction   stringOrList               `json:"NotAction,omitempty"`
	Resource    stringOrList               `json:"Resource,omitempty"`
	NotResource stringOrList               `json:"NotResource,omitempty"`
	Condition   map[string]json.RawMessage `json:"Condition,omitempty"`
}

// statementList accepts the Statement field as a single object or a
// list of objects.
type statementList []Statement

func (l *statementList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var single Statement
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = statementList{single}
		return nil
	}
	var list []Statement
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected statement object or list: %w", err)
	}
	*l = statementList(list)
	return nil
}

// isAllow reports whether the statement grants rather than denies.
func (s *Statement) isAllow() bool {
	return strings.EqualFold(s.Effect, "Allow")
}

// hasResourceWildcard reports whether any resource entry is the bare
// "*", meaning the grant is not scoped to specific ARNs.
func (s *Statement) hasResourceWildcard() bool {
	for _, r := range s.Resource {
		if r == "*" {
			return true
		}
	}
	return false
}

// hasCondition reports whether the statement carries condition keys.
func (s *Statement) hasCondition() bool {
	return len(s.Condition) > 0
}

// isUnconstrained reports whether the statement's grants count as
// unrestricted under the given flags. Normally a grant must be
// resource-wildcarded and condition-free; the flags widen the net to
// arn-scoped or condition-guarded statements.
func (s *Statement) isUnconstrained(opts Options) bool {
	if !s.hasResourceWildcard() && !opts.FlagResourceARNStatements {
		return false
	}
	if s.hasCondition() && !opts.FlagConditionalStatements {
		return false
	}
	return true
}

// wildcardMatch reports whether pattern covers s under AWS action
// matching rules: "*" matches any run of characters, "?" exactly one.
// Both sides are compared case-insensitively.
func wildcardMatch(pattern, s string) bool {
	pattern = strings.ToLower(pattern)
	s = strings.ToLower(s)

	star, mark := -1, 0
	pi, si := 0, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// actionVerb returns the verb part of a service:Verb action entry,
// lowercased. For a bare "*" it returns "*".
func actionVerb(action string) string {
	if idx := strings.Index(action, ":"); idx >= 0 {
		return strings.ToLower(action[idx+1:])
	}
	return strings.ToLower(action)
}

// actionService returns the service prefix of an action entry,
// lowercased, or "" when there is none.
func actionService(action string) string {
	if idx := strings.Index(action, ":"); idx >= 0 {
		return strings.ToLower(action[:idx])
	}
	return ""
}

// isReadOnlyAction reports whether the action's verb starts with a
// read-only prefix. Wildcard verbs such as "Get*" still count as
// read-only; a bare "*" verb does not.
func isReadOnlyAction(action string) bool {
	verb := actionVerb(action)
	if verb == "*" {
		return false
	}
	for _, prefix := range readOnlyVerbPrefixes {
		if strings.HasPrefix(verb, prefix) {
			return true
		}
	}
	return false
}
