package exclusions

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk YAML schema for exclusion rules. Pattern lists
// accept exact names or globs with a leading and/or trailing "*";
// matching is case-insensitive. The action lists adjust
// infrastructure-modification results: exclude-actions are never
// reported, include-actions are always reported even when their verb
// looks read-only.
type Config struct {
	Policies       []string `yaml:"policies"`
	Roles          []string `yaml:"roles"`
	Users          []string `yaml:"users"`
	Groups         []string `yaml:"groups"`
	IncludeActions []string `yaml:"include-actions"`
	ExcludeActions []string `yaml:"exclude-actions"`
}

// DefaultConfig returns the stock rule set: service-linked roles and
// policies plus the read-level actions worth surfacing even in an
// infrastructure-modification listing.
func DefaultConfig() Config {
	return Config{
		Policies: []string{
			"aws-service-role*",
			"AWSServiceRoleFor*",
		},
		Roles: []string{
			"aws-service-role*",
			"aws-reserved*",
		},
		Users:  []string{},
		Groups: []string{},
		IncludeActions: []string{
			"s3:GetObject",
			"ssm:GetParameter",
			"ssm:GetParameters",
			"ssm:GetParametersByPath",
			"secretsmanager:GetSecretValue",
		},
		ExcludeActions: []string{},
	}
}

const templateHeader = `# Exclusion rules for iamscan.
# Patterns are case-insensitive; a leading or trailing "*" matches any
# prefix or suffix. Policies matching a rule are dropped from analysis;
# excluded principals never enter the attachment inventory.
`

// Template renders the default configuration as a starter YAML file.
func Template() ([]byte, error) {
	body, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("render exclusions template: %w", err)
	}
	return append([]byte(templateHeader), body...), nil
}
