package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kavisec/iamscan/internal/document"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/inventory"
	"github.com/kavisec/iamscan/internal/loader"
	"github.com/kavisec/iamscan/internal/models"
	"github.com/kavisec/iamscan/internal/scan"
)

// DefaultEngine is the production implementation of Engine.
type DefaultEngine struct{}

// NewDefaultEngine constructs a ready-to-use DefaultEngine.
func NewDefaultEngine() *DefaultEngine {
	return &DefaultEngine{}
}

// RunScan implements Engine. It reads the dump, applies exclusion
// filtering, cross-references principal attachments, and assembles the
// scan report.
func (e *DefaultEngine) RunScan(ctx context.Context, opts ScanOptions) (*models.ScanReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := loader.Load(opts.InputPath)
	if err != nil {
		return nil, err
	}

	excl, err := e.loadExclusions(opts.ExclusionsPath)
	if err != nil {
		return nil, err
	}

	filter, err := models.ParseSeverityFilter(opts.Severities)
	if err != nil {
		return nil, err
	}

	docOpts := document.Options{
		FlagConditionalStatements: opts.FlagConditionalStatements,
		FlagResourceARNStatements: opts.FlagResourceARNStatements,
	}
	collection, err := scan.NewManagedPolicyCollection(details.Policies, excl, docOpts, filter)
	if err != nil {
		return nil, fmt.Errorf("build policy collection: %w", err)
	}
	collection.PropagateInventory(inventory.Build(details, collection, excl))

	extended := !opts.Compact
	reports := collection.Reports(extended)

	return &models.ScanReport{
		ReportID:                          "scan-" + uuid.NewString(),
		GeneratedAt:                       time.Now().UTC(),
		AccountID:                         accountID(collection),
		Summary:                           computeSummary(len(details.Policies), collection.Dropped(), reports, extended),
		Policies:                          reports,
		InfrastructureModificationActions: collection.InfrastructureModificationActions(),
	}, nil
}

// loadExclusions returns the rule set at path, or the stock rules when
// no path was given.
func (e *DefaultEngine) loadExclusions(path string) (*exclusions.Exclusions, error) {
	if path == "" {
		return exclusions.Default(), nil
	}
	return exclusions.Load(path)
}

// accountID derives the account from the first customer-managed policy
// arn. A dump holding only AWS-managed policies has no account of its
// own to report.
func accountID(collection *scan.ManagedPolicyCollection) string {
	for _, p := range collection.Policies() {
		if p.Origin() != models.OriginCustomer {
			continue
		}
		account, err := p.AccountID()
		if err != nil {
			continue
		}
		return account
	}
	return ""
}

// computeSummary aggregates policy and finding counts across the run.
// Category and severity counters are present even when zero so report
// consumers see stable keys.
func computeSummary(total, dropped int, reports map[string]models.PolicyReport, extended bool) models.ScanSummary {
	summary := models.ScanSummary{
		TotalPolicies:      total,
		ScannedPolicies:    len(reports),
		ExcludedPolicies:   dropped,
		FindingsByCategory: map[models.RiskCategory]int{},
		FindingsBySeverity: map[models.Severity]int{},
	}

	categories := models.BaselineCategories()
	if extended {
		categories = models.AllCategories()
	}
	for _, c := range categories {
		summary.FindingsByCategory[c] = 0
		summary.FindingsBySeverity[models.CategorySeverity(c)] = 0
	}

	for _, report := range reports {
		if report.FindingCount() > 0 {
			summary.PoliciesWithFindings++
		}
		for _, c := range categories {
			section := report.Category(c)
			if section == nil {
				continue
			}
			summary.FindingsByCategory[c] += len(section.Findings)
			summary.FindingsBySeverity[section.Severity] += len(section.Findings)
		}
	}
	return summary
}
