package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kavisec/iamscan/internal/exclusions"
	"github.com/kavisec/iamscan/internal/loader"
)

// DoctorResult is the structured output of iamscan doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	Input struct {
		Path                   string `json:"path"`
		Present                bool   `json:"present"`
		Parsable               bool   `json:"parsable"`
		Policies               int    `json:"policies"`
		Roles                  int    `json:"roles"`
		Groups                 int    `json:"groups"`
		Users                  int    `json:"users"`
		MissingDefaultVersions int    `json:"missing_default_versions"`
		Error                  string `json:"error,omitempty"`
	} `json:"input"`

	Exclusions struct {
		Path    string `json:"path,omitempty"`
		Stock   bool   `json:"stock"`
		Present bool   `json:"present"`
		Valid   bool   `json:"valid"`
		Error   string `json:"error,omitempty"`
	} `json:"exclusions"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Check a dump and exclusion rules before scanning",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			input, _ := cmd.Flags().GetString("input")
			rulesFile, _ := cmd.Flags().GetString("exclusions-file")

			inputPath, err := expandPath(input)
			if err != nil {
				return err
			}
			rulesPath, err := expandPath(rulesFile)
			if err != nil {
				return err
			}

			result, err := runDoctor(cmd.OutOrStdout(), format, inputPath, rulesPath)
			if err != nil {
				// Rendering failure — let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("input", "", "Authorization details dump to check (required)")
	cmd.Flags().String("exclusions-file", "", "Exclusion rules file to check (default: built-in rules)")
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode
// error). Callers must inspect result.OverallHealthy; runDoctor itself
// never returns an error for an unhealthy result so that no error text
// leaks to callers (such as main).
func runDoctor(w io.Writer, format, inputPath, rulesPath string) (DoctorResult, error) {
	result := collectDoctorResult(inputPath, rulesPath)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all input checks and populates a
// DoctorResult. It performs no rendering; callers decide how to present
// the result.
func collectDoctorResult(inputPath, rulesPath string) DoctorResult {
	var result DoctorResult

	// Input: stat → parse → per-policy default-version check. A policy
	// without a default version aborts a scan, so it is surfaced here.
	result.Input.Path = inputPath
	if _, err := os.Stat(inputPath); err != nil {
		result.Input.Error = err.Error()
	} else {
		result.Input.Present = true
		details, err := loader.Load(inputPath)
		if err != nil {
			result.Input.Error = err.Error()
		} else {
			result.Input.Parsable = true
			result.Input.Policies = len(details.Policies)
			result.Input.Roles = len(details.RoleDetailList)
			result.Input.Groups = len(details.GroupDetailList)
			result.Input.Users = len(details.UserDetailList)
			for _, p := range details.Policies {
				hasDefault := false
				for _, v := range p.PolicyVersionList {
					if v.IsDefaultVersion {
						hasDefault = true
						break
					}
				}
				if !hasDefault {
					result.Input.MissingDefaultVersions++
				}
			}
		}
	}

	// Exclusions: the built-in rules are always valid; a file must
	// exist, parse, and pass validation.
	if rulesPath == "" {
		result.Exclusions.Stock = true
		result.Exclusions.Valid = true
	} else {
		result.Exclusions.Path = rulesPath
		if _, err := os.Stat(rulesPath); err != nil {
			result.Exclusions.Error = err.Error()
		} else {
			result.Exclusions.Present = true
			if _, err := exclusions.Load(rulesPath); err != nil {
				result.Exclusions.Error = err.Error()
			} else {
				result.Exclusions.Valid = true
			}
		}
	}

	result.OverallHealthy = result.Input.Parsable &&
		result.Input.MissingDefaultVersions == 0 &&
		result.Exclusions.Valid

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Scan Input Diagnostics")

	fmt.Fprintf(w, "\nInput (%s):\n", result.Input.Path)
	if !result.Input.Present {
		doctorPrint(w, "File present", "FAIL", result.Input.Error)
		doctorPrint(w, "Parsable", "FAIL", "skipped")
	} else {
		doctorPrint(w, "File present", "OK", "")
		if !result.Input.Parsable {
			doctorPrint(w, "Parsable", "FAIL", result.Input.Error)
		} else {
			doctorPrint(w, "Parsable", "OK", fmt.Sprintf("%d policies, %d roles, %d groups, %d users",
				result.Input.Policies, result.Input.Roles, result.Input.Groups, result.Input.Users))
			if result.Input.MissingDefaultVersions > 0 {
				doctorPrint(w, "Default versions", "FAIL",
					fmt.Sprintf("%d policies without a default version", result.Input.MissingDefaultVersions))
			} else {
				doctorPrint(w, "Default versions", "OK", "")
			}
		}
	}

	fmt.Fprintln(w, "\nExclusions:")
	if result.Exclusions.Stock {
		doctorPrint(w, "Rules", "OK", "built-in")
	} else if !result.Exclusions.Present {
		doctorPrint(w, "File present", "FAIL", result.Exclusions.Error)
		doctorPrint(w, "Rules valid", "FAIL", "skipped")
	} else {
		doctorPrint(w, "File present", "OK", "")
		if result.Exclusions.Valid {
			doctorPrint(w, "Rules valid", "OK", "")
		} else {
			doctorPrint(w, "Rules valid", "FAIL", result.Exclusions.Error)
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
