package scan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/cmd/version"
	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/engine"
	"github.com/shamash-tools/shamash/internal/export"
	"github.com/shamash-tools/shamash/internal/report"
	"github.com/shamash-tools/shamash/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	ConfigPath string
	FactsFiles []string
	OutputDir  string
	FailOn     string
	NoInline   bool
}

var (
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Running a scan with the default config file (shamash.yml)
  shamash scan

  # Running a scan with an explicit config file
  shamash scan --config /path/to/shamash.yml

  # Scanning facts exported by another shamash run or an IDE host
  shamash scan --facts /path/to/project.facts.gz

  # Overriding the export directory and failing the run on warnings
  shamash scan --output /path/to/reports --fail-on warning`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--config/-c PATH] [--facts PATH]... [--output/-o DIR] [--fail-on LEVEL]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Run the full analysis pipeline and export the report",
	RunE:                  runScanCommand,
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	if err := validateScanArgs(&scanOptions); err != nil {
		return err
	}
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	logger := logger.NewLogger("scan", level)

	cfg, err := loadValidatedConfig(scanOptions.ConfigPath)
	if err != nil {
		return err
	}

	result, err := engine.ExtractIndex(cmd.Context(), cfg, scanOptions.FactsFiles, logger)
	if err != nil {
		return err
	}
	for _, extErr := range result.Errors {
		logger.Warn("extraction error", "file", extErr.File, "phase", extErr.Phase, "error", extErr.Message)
	}

	rep, summary, err := engine.Run(cmd.Context(), cfg, result.Index, engine.Options{
		Tool:        "shamash",
		ToolVersion: version.CoreVersion,
		InlineScan:  !scanOptions.NoInline,
	}, logger)
	if err != nil {
		return err
	}

	if scanOptions.OutputDir != "" {
		cfg.Export.Enabled = true
		cfg.Export.OutputDir = scanOptions.OutputDir
		if len(cfg.Export.Formats) == 0 {
			cfg.Export.Formats = []string{export.FormatJSON}
		}
	}
	if err := export.WriteAll(rep, cfg.Export, cfg.Project.BasePath, logger); err != nil {
		return err
	}

	printSummary(rep, summary, len(result.Errors))
	return checkGate(rep, scanOptions.FailOn)
}

// loadValidatedConfig loads the config and prints every validation
// entry. Any ERROR-severity entry blocks the scan.
func loadValidatedConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	verrs := config.Validate(cfg)
	for _, e := range verrs {
		fmt.Fprintln(os.Stderr, e.String())
	}
	if config.HasErrors(verrs) {
		return nil, fmt.Errorf("configuration %q is invalid", path)
	}
	return cfg, nil
}

func printSummary(rep *report.ExportedReport, summary *engine.Summary, extractionErrors int) {
	var errors, warnings, infos int
	for i := range rep.Findings {
		switch rep.Findings[i].Severity {
		case report.SeverityError:
			errors++
		case report.SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	fmt.Printf("Findings: %d (%d errors, %d warnings, %d infos)\n", summary.Reported, errors, warnings, infos)
	suppressed := summary.SuppressedException + summary.SuppressedInline + summary.SuppressedBaseline
	if suppressed > 0 {
		fmt.Printf("Suppressed: %d (%d exceptions, %d inline, %d baseline)\n",
			suppressed, summary.SuppressedException, summary.SuppressedInline, summary.SuppressedBaseline)
	}
	if extractionErrors > 0 {
		fmt.Printf("Extraction errors: %d\n", extractionErrors)
	}
}

// checkGate turns findings at or above the fail-on level into a
// non-zero exit.
func checkGate(rep *report.ExportedReport, failOn string) error {
	if failOn == failOnNever {
		return nil
	}
	threshold := report.SeverityRank(report.SeverityError)
	if failOn == failOnWarning {
		threshold = report.SeverityRank(report.SeverityWarning)
	}
	count := 0
	for i := range rep.Findings {
		if report.SeverityRank(rep.Findings[i].Severity) <= threshold {
			count++
		}
	}
	if count > 0 {
		return fmt.Errorf("%d findings at or above %s severity", count, failOn)
	}
	return nil
}

// Initialize flags for the scan command.
func init() {
	ScanCmd.Flags().StringVarP(&scanOptions.ConfigPath, "config", "c", "shamash.yml", "Path to the analysis configuration file.")
	ScanCmd.Flags().StringSliceVar(&scanOptions.FactsFiles, "facts", nil, "Path to a facts stream file to scan instead of walking the configured roots. Repeatable.")
	ScanCmd.Flags().StringVarP(&scanOptions.OutputDir, "output", "o", "", "Directory for exported reports, overriding the export section of the config.")
	ScanCmd.Flags().StringVar(&scanOptions.FailOn, "fail-on", "error", "Severity that fails the run: error, warning or never.")
	ScanCmd.Flags().BoolVar(&scanOptions.NoInline, "no-inline-suppression", false, "Skip scanning source files for inline suppression directives.")
	ScanCmd.Flags().BoolP("help", "h", false, "Show help for the scan command.")
}
