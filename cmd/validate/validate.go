package validate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/pkg/shared/files"
)

// RunOptionsValidate holds the arguments for the validate command.
type RunOptionsValidate struct {
	ConfigPath string
}

var validateOptions RunOptionsValidate

// ValidateCmd represents the validate command.
var ValidateCmd = &cobra.Command{
	Use:                   "validate [--config/-c PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example: `  # Validating the default config file
  shamash validate

  # Validating an explicit config file
  shamash validate --config /path/to/shamash.yml`,
	Short: "Validate the analysis configuration without scanning",
	RunE:  runValidateCommand,
}

// runValidateCommand executes the validate command.
func runValidateCommand(cmd *cobra.Command, args []string) error {
	if validateOptions.ConfigPath == "" {
		return fmt.Errorf("the 'config' flag must be specified")
	}
	if err := files.ValidatePath(validateOptions.ConfigPath); err != nil {
		return fmt.Errorf("the config file is not readable: %w", err)
	}

	cfg, err := config.LoadConfig(validateOptions.ConfigPath)
	if err != nil {
		return err
	}

	verrs := config.Validate(cfg)
	errors, warnings := 0, 0
	for _, e := range verrs {
		fmt.Println(e.String())
		if e.Severity == config.SeverityError {
			errors++
		} else {
			warnings++
		}
	}

	if errors > 0 {
		return fmt.Errorf("configuration %q is invalid: %d errors, %d warnings", validateOptions.ConfigPath, errors, warnings)
	}
	fmt.Printf("Configuration %q is valid (%d warnings)\n", validateOptions.ConfigPath, warnings)
	return nil
}

// Initialize flags for the validate command.
func init() {
	ValidateCmd.Flags().StringVarP(&validateOptions.ConfigPath, "config", "c", "shamash.yml", "Path to the analysis configuration file.")
	ValidateCmd.Flags().BoolP("help", "h", false, "Show help for the validate command.")
}
