package exportfacts

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/cmd/version"
	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/engine"
	"github.com/shamash-tools/shamash/internal/export"
	"github.com/shamash-tools/shamash/pkg/shared/files"
	"github.com/shamash-tools/shamash/pkg/shared/logger"
)

// RunOptionsExportFacts holds the arguments for the export-facts command.
type RunOptionsExportFacts struct {
	ConfigPath string
	OutputPath string
	Gzip       bool
}

var exportFactsOptions RunOptionsExportFacts

// ExportFactsCmd represents the export-facts command.
var ExportFactsCmd = &cobra.Command{
	Use:                   "export-facts [--config/-c PATH] [--output/-o PATH] [--gzip]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example: `  # Exporting the facts stream next to the project
  shamash export-facts --output /path/to/project.facts

  # Exporting a compressed stream
  shamash export-facts --output /path/to/project.facts.gz --gzip`,
	Short: "Extract facts and write them as a line-delimited stream for downstream consumers",
	RunE:  runExportFactsCommand,
}

// runExportFactsCommand executes the export-facts command.
func runExportFactsCommand(cmd *cobra.Command, args []string) error {
	if exportFactsOptions.ConfigPath == "" {
		return fmt.Errorf("the 'config' flag must be specified")
	}
	if err := files.ValidatePath(exportFactsOptions.ConfigPath); err != nil {
		return fmt.Errorf("the config file is not readable: %w", err)
	}
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	logger := logger.NewLogger("export-facts", level)

	cfg, err := config.LoadConfig(exportFactsOptions.ConfigPath)
	if err != nil {
		return err
	}
	verrs := config.Validate(cfg)
	for _, e := range verrs {
		fmt.Fprintln(os.Stderr, e.String())
	}
	if config.HasErrors(verrs) {
		return fmt.Errorf("configuration %q is invalid", exportFactsOptions.ConfigPath)
	}

	result, err := engine.ExtractIndex(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	for _, extErr := range result.Errors {
		logger.Warn("extraction error", "file", extErr.File, "phase", extErr.Phase, "error", extErr.Message)
	}

	name := "shamash-facts.ndjson"
	if exportFactsOptions.Gzip {
		name += ".gz"
	}
	fullPath, folder, err := files.DetermineFileFullPath(exportFactsOptions.OutputPath, name)
	if err != nil {
		return err
	}
	if err := files.CreateFolderIfNotExists(folder); err != nil {
		return err
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer out.Close()

	writer := export.NewStreamWriter("shamash", version.CoreVersion, cfg.Project.Name, exportFactsOptions.Gzip)
	if err := writer.Write(out, result.Index); err != nil {
		return err
	}

	logger.Info("facts stream written", "path", fullPath, "classes", len(result.Index.Classes), "edges", len(result.Index.Dependencies))
	fmt.Printf("Facts stream written to %s\n", fullPath)
	return nil
}

// Initialize flags for the export-facts command.
func init() {
	ExportFactsCmd.Flags().StringVarP(&exportFactsOptions.ConfigPath, "config", "c", "shamash.yml", "Path to the analysis configuration file.")
	ExportFactsCmd.Flags().StringVarP(&exportFactsOptions.OutputPath, "output", "o", ".", "Path to the output file or directory for the facts stream.")
	ExportFactsCmd.Flags().BoolVar(&exportFactsOptions.Gzip, "gzip", false, "Compress the stream with gzip.")
	ExportFactsCmd.Flags().BoolP("help", "h", false, "Show help for the export-facts command.")
}
