package diff

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/internal/report"
	"github.com/shamash-tools/shamash/pkg/reportdiff"
	"github.com/shamash-tools/shamash/pkg/shared/files"
)

// RunOptionsDiff holds the arguments for the diff command.
type RunOptionsDiff struct {
	PreviousPath string
	CurrentPath  string
	JSONOutput   string
	FailOnNew    bool
}

var diffOptions RunOptionsDiff

// DiffCmd represents the diff command.
var DiffCmd = &cobra.Command{
	Use:                   "diff --previous PATH --current PATH [--json-output PATH] [--fail-on-new]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example: `  # Comparing two exported JSON reports
  shamash diff --previous reports/old/report.json --current reports/new/report.json

  # Failing the run when new findings appeared
  shamash diff --previous old.json --current new.json --fail-on-new`,
	Short: "Compare two exported JSON reports and list new and resolved findings",
	RunE:  runDiffCommand,
}

// runDiffCommand executes the diff command.
func runDiffCommand(cmd *cobra.Command, args []string) error {
	if err := validateDiffArgs(&diffOptions); err != nil {
		return err
	}

	previous, err := reportdiff.LoadReport(diffOptions.PreviousPath)
	if err != nil {
		return err
	}
	current, err := reportdiff.LoadReport(diffOptions.CurrentPath)
	if err != nil {
		return err
	}

	correlator := reportdiff.NewCorrelator(previous.Findings, current.Findings)
	newFindings := correlator.NewFindings()
	resolved := correlator.ResolvedFindings()

	fmt.Printf("Previous: %d findings, current: %d findings, matched: %d\n",
		len(previous.Findings), len(current.Findings), len(correlator.Matches()))

	printGroup("New findings", newFindings)
	printGroup("Resolved findings", resolved)

	if diffOptions.JSONOutput != "" {
		if err := writeDiffJSON(diffOptions.JSONOutput, newFindings, resolved, len(correlator.Matches())); err != nil {
			return err
		}
	}

	if diffOptions.FailOnNew && len(newFindings) > 0 {
		return fmt.Errorf("%d new findings", len(newFindings))
	}
	return nil
}

// writeDiffJSON writes the diff result as a machine-readable file for
// CI consumers.
func writeDiffJSON(path string, newFindings, resolved []report.ExportedFinding, matched int) error {
	payload := struct {
		Matched  int                      `json:"matched"`
		New      []report.ExportedFinding `json:"new"`
		Resolved []report.ExportedFinding `json:"resolved"`
	}{
		Matched:  matched,
		New:      newFindings,
		Resolved: resolved,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode diff result: %w", err)
	}
	return files.WriteJsonFile(path, append(data, '\n'))
}

func printGroup(title string, findings []report.ExportedFinding) {
	fmt.Printf("%s: %d\n", title, len(findings))
	for i := range findings {
		f := &findings[i]
		location := f.FilePath
		if f.ClassFqn != "" {
			location = f.ClassFqn
			if f.MemberName != "" {
				location += "#" + f.MemberName
			}
		}
		fmt.Printf("  [%s] %s %s: %s\n", f.Severity, f.RuleID, location, f.Message)
	}
}

// validateDiffArgs validates the arguments provided to the diff command.
func validateDiffArgs(opts *RunOptionsDiff) error {
	if opts.PreviousPath == "" || opts.CurrentPath == "" {
		return fmt.Errorf("both 'previous' and 'current' flags must be specified")
	}
	for _, path := range []string{opts.PreviousPath, opts.CurrentPath} {
		if err := files.ValidatePath(path); err != nil {
			return fmt.Errorf("the report file is not readable: %w", err)
		}
	}
	return nil
}

// Initialize flags for the diff command.
func init() {
	DiffCmd.Flags().StringVar(&diffOptions.PreviousPath, "previous", "", "Path to the previous exported JSON report.")
	DiffCmd.Flags().StringVar(&diffOptions.CurrentPath, "current", "", "Path to the current exported JSON report.")
	DiffCmd.Flags().StringVar(&diffOptions.JSONOutput, "json-output", "", "Path for a machine-readable JSON diff result.")
	DiffCmd.Flags().BoolVar(&diffOptions.FailOnNew, "fail-on-new", false, "Exit non-zero when new findings are present.")
	DiffCmd.Flags().BoolP("help", "h", false, "Show help for the diff command.")
}
