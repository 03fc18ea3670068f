package exclusions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusions.yaml")

	content := `
policies:
  - "AWSServiceRoleFor*"
  - AdministratorAccess
roles:
  - "aws-reserved*"
include-actions:
  - s3:GetObject
exclude-actions:
  - logs:CreateLogGroup
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !e.IsPolicyExcluded("AdministratorAccess") {
		t.Error("expected AdministratorAccess excluded")
	}
	if !e.IsRoleExcluded("aws-reserved/sso") {
		t.Error("expected aws-reserved role excluded")
	}
	if !e.IsActionAlwaysExcluded("logs:CreateLogGroup") {
		t.Error("expected logs:CreateLogGroup always excluded")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidConfigReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusions.yaml")

	content := `
policies:
  - "*"
include-actions:
  - GetObject
`

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "matches everything") {
		t.Errorf("error should mention the catch-all pattern, got: %v", err)
	}
	if !strings.Contains(err.Error(), "service:action") {
		t.Errorf("error should mention the malformed action, got: %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusions.yaml")

	if err := os.WriteFile(path, []byte("policies: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected YAML parse error")
	}
}

func TestTemplate_RoundTrips(t *testing.T) {
	body, err := Template()
	if err != nil {
		t.Fatalf("Template returned error: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}
	if errs := Validate(&cfg); len(errs) != 0 {
		t.Fatalf("template does not validate: %v", errs)
	}
	if len(cfg.Policies) == 0 {
		t.Error("template should ship policy rules")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Policies:       []string{"", "ok*"},
		Roles:          []string{"**"},
		IncludeActions: []string{"noservice"},
	}
	errs := Validate(cfg)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	if errs := Validate(nil); len(errs) != 1 {
		t.Fatalf("expected a single error for nil config, got %d", len(errs))
	}
}
