package exclusions

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads an exclusions YAML file, validates it, and builds the rule
// set. Validation failures are joined into a single error so a broken
// file reports every problem at once.
func Load(path string) (*Exclusions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exclusions file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse exclusions file %s: %w", path, err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid exclusions file %s: %w", path, errors.Join(errs...))
	}

	return New(cfg), nil
}
