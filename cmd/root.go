package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamash-tools/shamash/cmd/baseline"
	"github.com/shamash-tools/shamash/cmd/diff"
	exportfacts "github.com/shamash-tools/shamash/cmd/export-facts"
	"github.com/shamash-tools/shamash/cmd/scan"
	"github.com/shamash-tools/shamash/cmd/validate"
	"github.com/shamash-tools/shamash/cmd/version"
)

var rootCmd = &cobra.Command{
	Use:                   "shamash [command]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Shamash is an architecture-conformance analyzer for JVM codebases.",
	Long: `Shamash checks JVM codebases against a declarative architecture model:
	roles, allowed role dependencies, package constraints, dependency cycles,
	size and god-class metrics, and dead code, with suppression, baseline and
	multi-format report export.
	`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn or error.")
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(validate.ValidateCmd)
	rootCmd.AddCommand(baseline.BaselineCmd)
	rootCmd.AddCommand(exportfacts.ExportFactsCmd)
	rootCmd.AddCommand(diff.DiffCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

func Execute() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
