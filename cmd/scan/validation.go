package scan

import (
	"fmt"

	"github.com/shamash-tools/shamash/pkg/shared/files"
)

const (
	failOnError   = "error"
	failOnWarning = "warning"
	failOnNever   = "never"
)

// validateScanArgs validates the arguments provided to the scan command.
func validateScanArgs(opts *RunOptionsScan) error {
	if opts.ConfigPath == "" {
		return fmt.Errorf("the 'config' flag must be specified")
	}
	if err := files.ValidatePath(opts.ConfigPath); err != nil {
		return fmt.Errorf("the config file is not readable: %w", err)
	}

	switch opts.FailOn {
	case failOnError, failOnWarning, failOnNever:
	default:
		return fmt.Errorf("the 'fail-on' flag must be one of error, warning or never")
	}

	for _, path := range opts.FactsFiles {
		if err := files.ValidatePath(path); err != nil {
			return fmt.Errorf("the facts file is not readable: %w", err)
		}
	}
	return nil
}
