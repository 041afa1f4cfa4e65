package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates the hclog.Logger used across the CLI. The
// SHAMASH_LOG_LEVEL environment variable overrides the configured
// level; unset or unrecognized levels fall back to INFO.
func NewLogger(name, level string) hclog.Logger {
	if env := os.Getenv("SHAMASH_LOG_LEVEL"); env != "" {
		level = env
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      os.Stderr,
		Level:       getLogLevel(strings.ToUpper(level)),
	})
}

func getLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
