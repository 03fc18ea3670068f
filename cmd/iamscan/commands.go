package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/kavisec/iamscan/internal/engine"
	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/models"
	"github.com/kavisec/iamscan/internal/output"
	"github.com/kavisec/iamscan/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "iamscan",
		Short: "iamscan — IAM managed-policy risk scanner",
	}
	root.AddCommand(newScanCmd())
	root.AddCommand(newInitExclusionsCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newScanCmd() *cobra.Command {
	var (
		input       string
		rulesFile   string
		severities  []string
		compact     bool
		flagCond    bool
		flagARN     bool
		reportFmt   string
		outputPath  string
		colored     bool
		attachments bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan an account authorization details dump for risky managed policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, err := expandPath(input)
			if err != nil {
				return err
			}
			rulesPath, err := expandPath(rulesFile)
			if err != nil {
				return err
			}

			opts := engine.ScanOptions{
				InputPath:                 inputPath,
				ExclusionsPath:            rulesPath,
				Severities:                severities,
				Compact:                   compact,
				FlagConditionalStatements: flagCond,
				FlagResourceARNStatements: flagARN,
			}

			report, err := engine.NewDefaultEngine().RunScan(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if outputPath != "" {
				path, err := expandPath(outputPath)
				if err != nil {
					return err
				}
				if err := writeReportToFile(path, report); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if reportFmt == "json" {
				return printJSON(w, report)
			}
			tableOpts := output.TableOptions{Colored: colored, IncludeAttachments: attachments}
			output.RenderSummary(w, report, tableOpts)
			fmt.Fprintln(w)
			output.RenderTable(w, report, tableOpts)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to an `aws iam get-account-authorization-details` JSON dump (required)")
	cmd.Flags().StringVar(&rulesFile, "exclusions-file", "", "Exclusion rules YAML file (default: built-in rules)")
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "Only report findings from these risk categories (e.g. PrivilegeEscalation)")
	cmd.Flags().BoolVar(&compact, "compact", false, "Drop the per-policy infrastructure-modification listing")
	cmd.Flags().BoolVar(&flagCond, "flag-conditional-statements", false, "Also flag statements guarded by Condition keys")
	cmd.Flags().BoolVar(&flagARN, "flag-resource-arn-statements", false, "Also flag statements scoped to specific resource ARNs")
	cmd.Flags().StringVar(&reportFmt, "format", "table", "Output format: json or table")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write full JSON report to this file path (in addition to stdout output)")
	cmd.Flags().BoolVar(&colored, "color", false, "Color severity labels in table output")
	cmd.Flags().BoolVar(&attachments, "show-attachments", false, "Add an attachment count column to table output")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newInitExclusionsCmd() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init-exclusions",
		Short: "Write a starter exclusion rules file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := expandPath(outputPath)
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}

			template, err := exclusions.Template()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, template, 0o644); err != nil {
				return fmt.Errorf("write exclusions file %q: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "exclusions.yml", "Where to write the rules file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// expandPath resolves a leading ~ to the user's home directory. Empty
// paths pass through untouched.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand path %q: %w", path, err)
	}
	return expanded, nil
}

// printJSON writes the report as indented JSON to w.
func printJSON(w io.Writer, report *models.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.ScanReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
