package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/shamash-tools/shamash/internal/config"
	"github.com/shamash-tools/shamash/internal/facts"
	"github.com/shamash-tools/shamash/internal/report"
	"github.com/shamash-tools/shamash/internal/roles"
	"github.com/shamash-tools/shamash/internal/rules"
	"github.com/shamash-tools/shamash/internal/suppress"
)

// Options identify the tool in reports and tune suppression.
type Options struct {
	Tool        string
	ToolVersion string
	// Now lets tests pin exception-expiry evaluation.
	Now func() time.Time
	// InlineScan enables file-text inline directive suppression. Off
	// when scanning facts produced elsewhere, where source files are
	// not available locally.
	InlineScan bool
}

// Summary counts what happened to findings on their way into the
// report.
type Summary struct {
	Raw                 int
	SuppressedException int
	SuppressedInline    int
	SuppressedBaseline  int
	Reported            int
	BaselineWritten     bool
}

// Run executes the analysis pipeline over an extracted index: role
// resolution, rule evaluation, suppression, report building and the
// configured baseline mode. The index is owned by this invocation;
// nothing is shared across concurrent runs.
func Run(ctx context.Context, cfg *config.Config, index *facts.Index, opts Options, logger hclog.Logger) (*report.ExportedReport, *Summary, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := roles.Resolve(index, cfg.Roles); err != nil {
		return nil, nil, fmt.Errorf("resolving roles: %w", err)
	}

	findings, err := rules.EvaluateAll(ctx, cfg, index, logger)
	if err != nil {
		return nil, nil, err
	}
	summary := &Summary{Raw: len(findings)}

	basePath := cfg.Project.BasePath
	exceptions := suppress.CompileExceptions(cfg.Exceptions)
	findings, summary.SuppressedException = suppress.ApplyExceptions(findings, exceptions, index, basePath, opts.Now())

	if opts.InlineScan {
		scanner := suppress.NewInlineScanner(basePath)
		findings, summary.SuppressedInline = scanner.Apply(findings)
	}

	builder := report.NewBuilder(opts.Tool, opts.ToolVersion, cfg.Project.Name, basePath)

	mode := report.BaselineMode(cfg.Baseline.Mode)
	if mode == "" {
		mode = report.BaselineNone
	}
	var baseline *report.Baseline
	if mode == report.BaselineUse {
		baseline, err = report.LoadBaseline(baselinePath(cfg))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, nil, fmt.Errorf("loading baseline: %w", err)
			}
			logger.Warn("baseline mode is use but no baseline file exists", "path", cfg.Baseline.Path)
		}
	}
	if baseline != nil {
		builder.AddPreprocessor(report.NewBaselinePreprocessor(baseline, basePath))
	}

	rep := builder.Build(findings)
	if baseline != nil {
		summary.SuppressedBaseline = len(findings) - len(rep.Findings)
	}
	summary.Reported = len(rep.Findings)

	if mode == report.BaselineGenerate {
		generated, err := report.GenerateBaseline(findings, basePath, baselinePath(cfg), cfg.Baseline.Merge)
		if err != nil {
			return nil, nil, fmt.Errorf("generating baseline: %w", err)
		}
		if err := generated.Save(baselinePath(cfg)); err != nil {
			return nil, nil, fmt.Errorf("writing baseline: %w", err)
		}
		summary.BaselineWritten = true
		logger.Info("baseline written", "path", baselinePath(cfg), "fingerprints", len(generated.Fingerprints))
	}

	logger.Info("analysis finished",
		"findings", summary.Reported,
		"raw", summary.Raw,
		"suppressedExceptions", summary.SuppressedException,
		"suppressedInline", summary.SuppressedInline,
		"suppressedBaseline", summary.SuppressedBaseline)
	return rep, summary, nil
}

// baselinePath resolves the configured baseline file against the
// project base path.
func baselinePath(cfg *config.Config) string {
	path := cfg.Baseline.Path
	if path == "" {
		path = "shamash-baseline.json"
	}
	if !filepath.IsAbs(path) && cfg.Project.BasePath != "" {
		path = filepath.Join(cfg.Project.BasePath, path)
	}
	return path
}
