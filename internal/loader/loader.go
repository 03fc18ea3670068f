// Package loader reads account authorization details into the record
// model a scan consumes, either from a JSON dump on disk or from the
// values the IAM API returns.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kavisec/iamscan/internal/models"
)

// Load reads an `aws iam get-account-authorization-details` dump from
// path.
func Load(path string) (*models.AuthorizationDetails, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorization details: %w", err)
	}
	details, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return details, nil
}

// Parse decodes a raw authorization details dump. Missing sections
// decode to empty lists; an account with no managed policies is a
// valid, if quiet, scan input.
func Parse(data []byte) (*models.AuthorizationDetails, error) {
	var details models.AuthorizationDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("parse authorization details: %w", err)
	}
	return &details, nil
}
