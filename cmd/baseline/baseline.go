package baseline

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/cmd/version"
	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/engine"
	"github.com/shamash-tools/shamash/internal/report"
	"github.com/shamash-tools/shamash/pkg/shared/files"
	"github.com/shamash-tools/shamash/pkg/shared/logger"
)

// RunOptionsBaseline holds the arguments for the baseline command.
type RunOptionsBaseline struct {
	ConfigPath string
	FactsFiles []string
	Merge      bool
}

var baselineOptions RunOptionsBaseline

// BaselineCmd represents the baseline command.
var BaselineCmd = &cobra.Command{
	Use:                   "baseline [--config/-c PATH] [--facts PATH]... [--merge]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example: `  # Accepting all current findings into the baseline file
  shamash baseline

  # Adding current findings to an existing baseline instead of replacing it
  shamash baseline --merge`,
	Short: "Run the analysis and write the current findings to the baseline file",
	RunE:  runBaselineCommand,
}

// runBaselineCommand executes the baseline command: the regular
// pipeline with the baseline mode forced to generate.
func runBaselineCommand(cmd *cobra.Command, args []string) error {
	if baselineOptions.ConfigPath == "" {
		return fmt.Errorf("the 'config' flag must be specified")
	}
	if err := files.ValidatePath(baselineOptions.ConfigPath); err != nil {
		return fmt.Errorf("the config file is not readable: %w", err)
	}
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	logger := logger.NewLogger("baseline", level)

	cfg, err := config.LoadConfig(baselineOptions.ConfigPath)
	if err != nil {
		return err
	}
	verrs := config.Validate(cfg)
	for _, e := range verrs {
		fmt.Fprintln(os.Stderr, e.String())
	}
	if config.HasErrors(verrs) {
		return fmt.Errorf("configuration %q is invalid", baselineOptions.ConfigPath)
	}

	cfg.Baseline.Mode = string(report.BaselineGenerate)
	cfg.Baseline.Merge = baselineOptions.Merge

	result, err := engine.ExtractIndex(cmd.Context(), cfg, baselineOptions.FactsFiles, logger)
	if err != nil {
		return err
	}
	for _, extErr := range result.Errors {
		logger.Warn("extraction error", "file", extErr.File, "phase", extErr.Phase, "error", extErr.Message)
	}

	_, summary, err := engine.Run(cmd.Context(), cfg, result.Index, engine.Options{
		Tool:        "shamash",
		ToolVersion: version.CoreVersion,
		InlineScan:  true,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Baseline written with %d findings\n", summary.Reported)
	return nil
}

// Initialize flags for the baseline command.
func init() {
	BaselineCmd.Flags().StringVarP(&baselineOptions.ConfigPath, "config", "c", "shamash.yml", "Path to the analysis configuration file.")
	BaselineCmd.Flags().StringSliceVar(&baselineOptions.FactsFiles, "facts", nil, "Path to a facts stream file to scan instead of walking the configured roots. Repeatable.")
	BaselineCmd.Flags().BoolVar(&baselineOptions.Merge, "merge", false, "Union the current findings into the existing baseline instead of replacing it.")
	BaselineCmd.Flags().BoolP("help", "h", false, "Show help for the baseline command.")
}
