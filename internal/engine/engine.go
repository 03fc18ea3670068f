package engine

import (
	"context"

	"github.com/kavisec/iamscan/internal/models"
)

// ScanOptions configures a single scan run.
// It is the sole input to Engine.RunScan.
type ScanOptions struct {
	// InputPath is the account authorization details dump to scan.
	InputPath string

	// ExclusionsPath points at an exclusion rules file. Empty means the
	// stock rule set.
	ExclusionsPath string

	// Severities restricts which risk categories report findings.
	// Labels are category names, case-insensitive. Empty means no
	// filtering.
	Severities []string

	// Compact drops the infrastructure-modification category from the
	// per-policy reports. The action union at the report level is kept.
	Compact bool

	// FlagConditionalStatements also flags grants guarded by Condition
	// keys.
	FlagConditionalStatements bool

	// FlagResourceARNStatements also flags grants scoped to specific
	// resource ARNs.
	FlagResourceARNStatements bool
}

// Engine is the central orchestration interface. It loads the dump and
// the exclusion rules, builds the policy collection and the attachment
// inventory, and returns a fully populated ScanReport.
//
// Engine never talks to AWS; scans run entirely on the supplied dump.
type Engine interface {
	RunScan(ctx context.Context, opts ScanOptions) (*models.ScanReport, error)
}
