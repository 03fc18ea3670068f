package exclusions

import (
	"fmt"
	"strings"
)

// Validate checks cfg for semantic correctness and returns all
// validation errors found. An empty slice means the config is valid.
//
// Checks performed:
//   - pattern lists must not contain blank entries
//   - a bare "*" pattern is rejected (it would exclude everything)
//   - include-actions and exclude-actions entries must be
//     service:action shaped
//
// All errors are collected before returning; Validate never stops at
// the first problem.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("exclusions config is nil")}
	}

	var errs []error

	patternLists := []struct {
		field    string
		patterns []string
	}{
		{"policies", cfg.Policies},
		{"roles", cfg.Roles},
		{"users", cfg.Users},
		{"groups", cfg.Groups},
	}
	for _, list := range patternLists {
		for i, p := range list.patterns {
			trimmed := strings.TrimSpace(p)
			if trimmed == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: blank pattern", list.field, i))
				continue
			}
			if strings.Trim(trimmed, "*") == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: pattern %q matches everything", list.field, i, p))
			}
		}
	}

	actionLists := []struct {
		field   string
		actions []string
	}{
		{"include-actions", cfg.IncludeActions},
		{"exclude-actions", cfg.ExcludeActions},
	}
	for _, list := range actionLists {
		for i, a := range list.actions {
			if strings.TrimSpace(a) == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: blank action", list.field, i))
				continue
			}
			if !strings.Contains(a, ":") {
				errs = append(errs, fmt.Errorf("%s[%d]: action %q is not service:action shaped", list.field, i, a))
			}
		}
	}

	return errs
}
